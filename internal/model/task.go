package model

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusCancelled  TaskStatus = "CANCELLED"
)

// ParseTaskStatus accepts any casing of a known status.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown task status %q", s)
	}
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority accepts any casing of a known priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Task is the reminder-relevant projection of a learning task.
type Task struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	OwnerID      string     `gorm:"index;size:128;not null" json:"ownerId"`
	Title        string     `gorm:"size:512;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	DueAt        time.Time  `gorm:"not null" json:"dueAt"`
	ReminderAt   *time.Time `gorm:"index" json:"reminderAt"`
	ReminderSent bool       `gorm:"not null;default:false" json:"reminderSent"`
	Status       TaskStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	Priority     Priority   `gorm:"size:8;not null;default:MEDIUM" json:"priority"`
	CreatedAt    time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updatedAt"`
}

// Normalize fills the variant defaults and rejects values outside the closed sets.
func (t *Task) Normalize() error {
	if t.Status == "" {
		t.Status = StatusPending
	}
	status, err := ParseTaskStatus(string(t.Status))
	if err != nil {
		return err
	}
	t.Status = status

	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	priority, err := ParsePriority(string(t.Priority))
	if err != nil {
		return err
	}
	t.Priority = priority
	return nil
}
