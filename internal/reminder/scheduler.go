package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers scan cycles on a cron schedule. A tick that arrives while the
// previous cycle is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	scanner *Scanner
	log     *zap.Logger
	now     func() time.Time
}

// NewScheduler creates a scheduler evaluating cron specs in loc.
func NewScheduler(scanner *Scanner, loc *time.Location, log *zap.Logger) *Scheduler {
	cronLog := cronLogger{log: log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		scanner: scanner,
		log:     log,
		now:     time.Now,
	}
}

// Start registers the scan job and starts the cron runner. ctx is passed to every cycle.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info("reminder scheduler started", zap.String("schedule", spec))
	return nil
}

// Stop halts the runner; the returned context is done once a running cycle has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs a single cycle and logs its outcome. Storage failures are retried
// implicitly by the next tick.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := s.now()
	result, err := s.scanner.ScanAndNotify(ctx, start)
	if err != nil {
		s.log.Error("reminder scan failed",
			zap.Int("due", result.Due),
			zap.Int("failed", result.Failed),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("reminder scan tick",
		zap.Int("due", result.Due),
		zap.Duration("took", time.Since(start)),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
