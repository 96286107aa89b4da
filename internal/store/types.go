package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learning-planner-backend/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist or is not visible to the caller.
var ErrNotFound = errors.New("not found")

// StorageError reports that the backing database rejected or failed an operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// SubscriptionStore persists push endpoint registrations.
type SubscriptionStore interface {
	// ListActiveByUser returns only subscriptions with active=true; order is not significant.
	ListActiveByUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	// Deactivate sets active=false. Unknown or already inactive ids are a no-op.
	Deactivate(ctx context.Context, id string) error
	// Create always inserts a new active registration, duplicates included.
	Create(ctx context.Context, userID, endpoint string) (*model.PushSubscription, error)
	// DeleteAllByUser removes every registration of the user.
	DeleteAllByUser(ctx context.Context, userID string) error
}

// TaskStore persists tasks and their reminder state.
type TaskStore interface {
	// FindDueUnnotified returns tasks with reminder_at <= now and reminder_sent = false.
	FindDueUnnotified(ctx context.Context, now time.Time) ([]model.Task, error)
	// MarkReminderSent flips reminder_sent from false to true. It reports whether this
	// call performed the transition; a repeated call returns false and no error.
	MarkReminderSent(ctx context.Context, id string) (bool, error)

	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, ownerID, id string) (*model.Task, error)
	Reschedule(ctx context.Context, ownerID, id string, change Schedule) (*model.Task, error)
}

// Schedule describes a change to a task's timing. Nil DueAt keeps the current due date.
// ReminderAt is applied only when SetReminder is true; nil then clears the reminder.
type Schedule struct {
	DueAt       *time.Time
	SetReminder bool
	ReminderAt  *time.Time
}
