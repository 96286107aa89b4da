package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"learning-planner-backend/internal/model"
)

// gormTaskStore implements TaskStore using GORM.
type gormTaskStore struct {
	db *gorm.DB
}

// NewGormTaskStore creates a GORM-backed task store.
func NewGormTaskStore(db *gorm.DB) TaskStore {
	return &gormTaskStore{db: db}
}

// FindDueUnnotified returns due reminders oldest first. Tasks without a reminder never match.
func (s *gormTaskStore) FindDueUnnotified(ctx context.Context, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := s.db.WithContext(ctx).
		Where("reminder_at IS NOT NULL AND reminder_at <= ? AND reminder_sent = ?", now.UTC(), false).
		Order("reminder_at").
		Find(&tasks).Error; err != nil {
		return nil, storageErr("find due reminders", err)
	}
	return tasks, nil
}

// MarkReminderSent is a conditional update, so exactly one concurrent caller sees true.
func (s *gormTaskStore) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	if res.Error != nil {
		return false, storageErr("mark reminder sent", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, storageErr("mark reminder sent", err)
	}
	if count == 0 {
		return false, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return false, nil
}

func (s *gormTaskStore) Create(ctx context.Context, task *model.Task) error {
	if err := task.Normalize(); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.DueAt = task.DueAt.UTC()
	task.ReminderAt = utcPtr(task.ReminderAt)

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return storageErr("create task", err)
	}
	return nil
}

func (s *gormTaskStore) Get(ctx context.Context, ownerID, id string) (*model.Task, error) {
	return s.get(s.db.WithContext(ctx), ownerID, id)
}

func (s *gormTaskStore) get(db *gorm.DB, ownerID, id string) (*model.Task, error) {
	var task model.Task
	err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get task", err)
	}
	return &task, nil
}

// Reschedule applies a timing change. Moving the reminder re-arms it by resetting reminder_sent.
func (s *gormTaskStore) Reschedule(ctx context.Context, ownerID, id string, change Schedule) (*model.Task, error) {
	var updated *model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.get(tx, ownerID, id)
		if err != nil {
			return err
		}

		updates := make(map[string]any)
		if change.DueAt != nil {
			updates["due_at"] = change.DueAt.UTC()
		}
		if change.SetReminder && reminderChanged(task.ReminderAt, change.ReminderAt) {
			if change.ReminderAt == nil {
				updates["reminder_at"] = nil
			} else {
				updates["reminder_at"] = change.ReminderAt.UTC()
			}
			updates["reminder_sent"] = false
		}

		if len(updates) > 0 {
			if err := tx.Model(task).Updates(updates).Error; err != nil {
				return storageErr("reschedule task", err)
			}
		}

		updated, err = s.get(tx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func reminderChanged(old, next *time.Time) bool {
	switch {
	case old == nil && next == nil:
		return false
	case old == nil || next == nil:
		return true
	default:
		return !old.Equal(*next)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
