package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"learning-planner-backend/internal/model"
	"learning-planner-backend/internal/notification"
	"learning-planner-backend/internal/store"
)

// Dispatcher delivers a message to every active device of a user.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, msg notification.Message) (notification.Report, error)
}

// Options tunes message rendering and in-process claims.
type Options struct {
	Title    string
	Location *time.Location
	ClaimTTL time.Duration
}

// ScanResult summarizes one scan cycle.
type ScanResult struct {
	Due      int // tasks returned by the due query
	Notified int // dispatched and marked
	Skipped  int // held by an overlapping cycle of this process
	Failed   int // left unmarked or marked after an error
}

// Scanner finds due reminders, dispatches them and marks them sent.
//
// A reminder is marked sent once dispatch has been attempted, whatever the per-device
// outcome, so a user without working devices is not retried on every tick. If marking
// fails after a dispatch the task stays due and is sent again on the next cycle.
type Scanner struct {
	tasks      store.TaskStore
	dispatcher Dispatcher
	claims     *cache.Cache
	title      string
	loc        *time.Location
	log        *zap.Logger
}

// NewScanner creates a scanner. Zero options fall back to UTC, a 5 minute claim TTL
// and the "Task reminder" title.
func NewScanner(tasks store.TaskStore, dispatcher Dispatcher, opts Options, log *zap.Logger) *Scanner {
	if opts.Title == "" {
		opts.Title = "Task reminder"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = 5 * time.Minute
	}
	return &Scanner{
		tasks:      tasks,
		dispatcher: dispatcher,
		claims:     cache.New(opts.ClaimTTL, 2*opts.ClaimTTL),
		title:      opts.Title,
		loc:        opts.Location,
		log:        log,
	}
}

// ScanAndNotify runs one scan cycle for reminders due at or before now. Storage errors
// of individual tasks do not stop the cycle; they are combined into the returned error.
func (s *Scanner) ScanAndNotify(ctx context.Context, now time.Time) (ScanResult, error) {
	due, err := s.tasks.FindDueUnnotified(ctx, now)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scan reminders: %w", err)
	}

	result := ScanResult{Due: len(due)}
	var errs error
	for _, task := range due {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if !s.claim(task.ID) {
			s.log.Debug("reminder held by overlapping scan", zap.String("task_id", task.ID))
			result.Skipped++
			continue
		}

		err := s.notify(ctx, task)
		s.claims.Delete(task.ID)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, err)
			continue
		}
		result.Notified++
	}

	if result.Due > 0 || errs != nil {
		s.log.Info("reminder scan finished",
			zap.Int("due", result.Due),
			zap.Int("notified", result.Notified),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
	return result, errs
}

func (s *Scanner) notify(ctx context.Context, task model.Task) error {
	report, err := s.dispatcher.Dispatch(ctx, task.OwnerID, s.Message(task))
	if err != nil {
		return fmt.Errorf("dispatch reminder for task %s: %w", task.ID, err)
	}

	marked, err := s.tasks.MarkReminderSent(ctx, task.ID)
	if err != nil {
		s.log.Error("reminder dispatched but not marked sent; it will be dispatched again",
			zap.String("task_id", task.ID),
			zap.Int("delivered", report.Delivered()),
			zap.Error(err),
		)
		return fmt.Errorf("mark reminder sent for task %s: %w", task.ID, err)
	}
	if !marked {
		s.log.Warn("reminder was marked by a concurrent scan; the owner may be notified twice",
			zap.String("task_id", task.ID))
	}
	return nil
}

// claim reports whether no other cycle of this process is working on the task.
func (s *Scanner) claim(taskID string) bool {
	return s.claims.Add(taskID, struct{}{}, cache.DefaultExpiration) == nil
}
