package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"learning-planner-backend/internal/mw"
	"learning-planner-backend/internal/store"
)

// CheckReminders runs one scan cycle. Delivery failures are not reported to the caller.
func (h *Handler) CheckReminders(c *gin.Context) {
	if _, err := h.scanner.ScanAndNotify(c.Request.Context(), h.now()); err != nil {
		h.internalError(c, err, "failed to check reminders")
		return
	}
	c.Status(http.StatusOK)
}

// rescheduleRequest distinguishes an absent reminderAt (keep) from null (clear).
type rescheduleRequest struct {
	DueAt      *time.Time      `json:"dueAt"`
	ReminderAt json.RawMessage `json:"reminderAt"`
}

func (r rescheduleRequest) schedule() (store.Schedule, error) {
	change := store.Schedule{DueAt: r.DueAt}
	if len(r.ReminderAt) == 0 {
		return change, nil
	}
	change.SetReminder = true
	if bytes.Equal(r.ReminderAt, []byte("null")) {
		return change, nil
	}
	var at time.Time
	if err := json.Unmarshal(r.ReminderAt, &at); err != nil {
		return change, err
	}
	change.ReminderAt = &at
	return change, nil
}

// RescheduleReminder moves the due date or reminder time of one of the caller's tasks.
// A changed reminder time makes the task eligible for a new reminder.
func (h *Handler) RescheduleReminder(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	change, err := req.schedule()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reminderAt must be an RFC 3339 timestamp or null"})
		return
	}
	if change.DueAt == nil && !change.SetReminder {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "nothing to change"})
		return
	}

	task, err := h.tasks.Reschedule(c.Request.Context(), mw.UserID(c), c.Param("id"), change)
	if err != nil {
		h.fail(c, err, "failed to reschedule task")
		return
	}
	c.JSON(http.StatusOK, task)
}
