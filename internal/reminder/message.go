package reminder

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"

	"learning-planner-backend/internal/model"
	"learning-planner-backend/internal/notification"
)

const dueLayout = "02.01.2006 15:04"

// Message renders the reminder for a task. The due date is shown in the scanner's location.
func (s *Scanner) Message(task model.Task) notification.Message {
	return notification.Message{
		Title:   s.title,
		Body:    fmt.Sprintf("Task '%s' is due by %s", task.Title, task.DueAt.In(s.loc).Format(dueLayout)),
		Urgency: urgency(task.Priority),
	}
}

func urgency(p model.Priority) webpush.Urgency {
	switch p {
	case model.PriorityLow:
		return webpush.UrgencyLow
	case model.PriorityMedium:
		return webpush.UrgencyNormal
	case model.PriorityHigh:
		return webpush.UrgencyHigh
	default:
		return webpush.UrgencyNormal
	}
}
