package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"learning-planner-backend/internal/reminder"
	"learning-planner-backend/internal/store"
)

// Scanner runs one reminder scan cycle.
type Scanner interface {
	ScanAndNotify(ctx context.Context, now time.Time) (reminder.ScanResult, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	subscriptions  store.SubscriptionStore
	tasks          store.TaskStore
	scanner        Scanner
	vapidPublicKey string
	log            *zap.Logger
	now            func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(subscriptions store.SubscriptionStore, tasks store.TaskStore, scanner Scanner, vapidPublicKey string, log *zap.Logger) *Handler {
	return &Handler{
		subscriptions:  subscriptions,
		tasks:          tasks,
		scanner:        scanner,
		vapidPublicKey: vapidPublicKey,
		log:            log,
		now:            time.Now,
	}
}

// fail maps an error to a status code and hides storage details from the caller.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.internalError(c, err, msg)
}

func (h *Handler) internalError(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	h.log.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
}
