// Package api exposes the engine over HTTP: event ingestion, alert
// queries and transitions, model reload, and health.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guardband-io/distress.engine/internal/alert"
	"github.com/guardband-io/distress.engine/internal/classify"
	"github.com/guardband-io/distress.engine/internal/engine"
)

// NewRouter builds the HTTP routing tree.
func NewRouter(eng *engine.Engine, store *alert.SQLStore, alerts *alert.Manager, bundle *classify.Handle, bundlePath string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogging(log))

	h := newHandler(eng, store, alerts, bundle, bundlePath, log)

	r.GET("/healthz", h.health)

	api := r.Group("/api")
	{
		api.POST("/events", h.ingestEvent)
		api.GET("/alerts", h.listAlerts)
		api.GET("/alerts/:id", h.getAlert)
		api.PATCH("/alerts/:id/status", h.transitionAlert)
		api.POST("/model/reload", h.reloadModel)
	}
	return r
}

func requestLogging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
