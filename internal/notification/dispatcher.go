package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"learning-planner-backend/internal/model"
	"learning-planner-backend/internal/store"
)

// DeliveryResult is the outcome of one delivery attempt.
type DeliveryResult struct {
	SubscriptionID string
	Delivered      bool
	Deactivated    bool
	Err            error
}

// Report collects the per-subscription outcomes of one dispatch.
type Report struct {
	UserID  string
	Results []DeliveryResult
}

// Delivered counts accepted deliveries.
func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Delivered {
			n++
		}
	}
	return n
}

// Failed counts rejected deliveries.
func (r Report) Failed() int {
	return len(r.Results) - r.Delivered()
}

// Dispatcher fans a message out to every active subscription of a user.
// Endpoints that fail delivery are deactivated so later dispatches skip them.
type Dispatcher struct {
	subscriptions store.SubscriptionStore
	transport     Transport
	concurrency   int
	log           *zap.Logger
}

// NewDispatcher creates a dispatcher that runs at most concurrency deliveries at once.
func NewDispatcher(subscriptions store.SubscriptionStore, transport Transport, concurrency int, log *zap.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		subscriptions: subscriptions,
		transport:     transport,
		concurrency:   concurrency,
		log:           log,
	}
}

// Dispatch delivers msg to all active subscriptions of userID. Delivery failures are
// recorded in the report and never returned; the error is non-nil only when the
// subscription store could not be read or written.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, msg Message) (Report, error) {
	report := Report{UserID: userID}

	subscriptions, err := d.subscriptions.ListActiveByUser(ctx, userID)
	if err != nil {
		return report, fmt.Errorf("dispatch to user %s: %w", userID, err)
	}
	if len(subscriptions) == 0 {
		d.log.Debug("no active subscriptions", zap.String("user_id", userID))
		return report, nil
	}

	report.Results = make([]DeliveryResult, len(subscriptions))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, sub := range subscriptions {
		i, sub := i, sub
		g.Go(func() error {
			result, err := d.deliver(ctx, sub, msg)
			report.Results[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	d.log.Info("dispatched notification",
		zap.String("user_id", userID),
		zap.Int("subscriptions", len(subscriptions)),
		zap.Int("delivered", report.Delivered()),
		zap.Int("failed", report.Failed()),
	)
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, sub model.PushSubscription, msg Message) (DeliveryResult, error) {
	result := DeliveryResult{SubscriptionID: sub.ID}

	sendErr := d.transport.Send(ctx, sub.Endpoint, msg)
	if sendErr == nil {
		result.Delivered = true
		return result, nil
	}
	result.Err = sendErr

	// a cancelled dispatch says nothing about the endpoint
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	d.log.Warn("push delivery failed, deactivating subscription",
		zap.String("subscription_id", sub.ID),
		zap.String("user_id", sub.UserID),
		zap.Error(sendErr),
	)
	if err := d.subscriptions.Deactivate(ctx, sub.ID); err != nil {
		return result, fmt.Errorf("deactivate subscription %s: %w", sub.ID, err)
	}
	result.Deactivated = true
	return result, nil
}
