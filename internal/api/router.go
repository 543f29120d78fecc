package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pm-tracker-backend/config"
	"pm-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestID(), mw.Logger(log), mw.Recovery(log))

	r.GET("/healthz", h.Healthz)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheStore := cache.New(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL+time.Minute)
	caching := mw.Cache(cacheStore, cfg.Server.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Auth(cfg.Auth.JWTSecret, log), mw.Invalidate(cacheStore))
	{
		api.GET("/auth/user", h.GetCurrentUser)

		machines := api.Group("/pm-machines")
		machines.GET("", caching, h.ListMachines)
		machines.POST("", h.CreateMachine)
		machines.GET("/export/excel", h.ExportMachines)
		machines.POST("/import/excel", h.ImportMachines)
		machines.GET("/:idMsn", caching, h.GetMachine)
		machines.PUT("/:idMsn", h.UpdateMachine)
		machines.PATCH("/:idMsn", h.EditMachine)
		machines.DELETE("/:idMsn", h.DeleteMachine)
		machines.POST("/:idMsn/complete", h.CompleteMachine)
		machines.POST("/:idMsn/reschedule", h.RescheduleMachine)

		api.GET("/machine-notes/:idMsn", caching, h.GetNote)
		api.POST("/machine-notes", h.SaveNote)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
