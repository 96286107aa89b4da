package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"learning-planner-backend/config"
	"learning-planner-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, jwtSecret string, handler *Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		mw.Recovery(log),
		mw.RequestLogger(log),
		mw.CORS(cfg.AllowedOrigins),
		mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
	)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/health", handler.Health)
	r.GET("/push/vapid-public-key", caching, handler.GetVAPIDPublicKey)

	authed := r.Group("/", mw.JWTAuth(jwtSecret))
	{
		authed.POST("/push/subscribe", handler.Subscribe)
		authed.POST("/push/unsubscribe", handler.Unsubscribe)
		authed.GET("/push/subscriptions", handler.ListSubscriptions)

		authed.POST("/tasks/check-reminders", handler.CheckReminders)
		authed.PATCH("/tasks/:id/reminder", handler.RescheduleReminder)
	}

	return r
}
