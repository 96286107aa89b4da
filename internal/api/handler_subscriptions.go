package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"learning-planner-backend/internal/model"
	"learning-planner-backend/internal/mw"
	"learning-planner-backend/internal/parse"
)

type subscribeResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// Subscribe registers the browser PushSubscription in the request body for the caller.
// Registering the same endpoint twice creates two rows.
func (h *Handler) Subscribe(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	endpoint, err := parse.NormalizeEndpoint(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subscriptions.Create(c.Request.Context(), mw.UserID(c), endpoint)
	if err != nil {
		h.fail(c, err, "failed to save subscription")
		return
	}
	c.JSON(http.StatusCreated, subscribeResponse{ID: sub.ID, Active: sub.Active})
}

// Unsubscribe removes every subscription of the caller.
func (h *Handler) Unsubscribe(c *gin.Context) {
	if err := h.subscriptions.DeleteAllByUser(c.Request.Context(), mw.UserID(c)); err != nil {
		h.fail(c, err, "failed to delete subscriptions")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubscriptions returns the caller's active subscriptions.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.subscriptions.ListActiveByUser(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.fail(c, err, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	c.JSON(http.StatusOK, subs)
}
