package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guardband-io/distress.engine/internal/alert"
	"github.com/guardband-io/distress.engine/internal/classify"
	"github.com/guardband-io/distress.engine/internal/engine"
	"github.com/guardband-io/distress.engine/internal/version"
	"github.com/guardband-io/distress.engine/internal/vitals"
)

type handler struct {
	eng        *engine.Engine
	store      *alert.SQLStore
	alerts     *alert.Manager
	bundle     *classify.Handle
	bundlePath string
	log        *zap.Logger
}

func newHandler(eng *engine.Engine, store *alert.SQLStore, alerts *alert.Manager, bundle *classify.Handle, bundlePath string, log *zap.Logger) *handler {
	return &handler{eng: eng, store: store, alerts: alerts, bundle: bundle, bundlePath: bundlePath, log: log}
}

// eventRequest is the ingestion payload. Audio is standard base64 in
// JSON and decodes to 16-bit little-endian PCM.
type eventRequest struct {
	DeviceID        string     `json:"device_id" binding:"required"`
	RecordedAt      *time.Time `json:"recorded_at"`
	HeartRate       *int       `json:"heart_rate"`
	Temperature     *float64   `json:"temperature"`
	Audio           []byte     `json:"audio"`
	AudioSampleRate int        `json:"audio_sample_rate"`
	ManualTrigger   bool       `json:"manual_trigger"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
}

func (h *handler) ingestEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ev := engine.SensorEvent{
		DeviceID:        req.DeviceID,
		AudioPCM:        req.Audio,
		AudioSampleRate: req.AudioSampleRate,
		HeartRate:       req.HeartRate,
		Temperature:     req.Temperature,
		ManualTrigger:   req.ManualTrigger,
	}
	if req.RecordedAt != nil {
		ev.RecordedAt = *req.RecordedAt
	}
	if req.Latitude != nil && req.Longitude != nil {
		ev.Position = &alert.Position{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	result, err := h.eng.Evaluate(c.Request.Context(), ev)
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine at capacity, retry"})
		return
	case errors.Is(err, vitals.ErrInvalidReading):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log.Error("evaluation failed", zap.String("device_id", req.DeviceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) listAlerts(c *gin.Context) {
	limit := 100
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	status := alert.Status(c.Query("status"))
	if status != "" && !alert.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	alerts, err := h.store.ListAlerts(c.Query("device_id"), status, limit)
	if err != nil {
		h.log.Error("list alerts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *handler) getAlert(c *gin.Context) {
	id := c.Param("id")
	a, err := h.store.GetAlert(id)
	if errors.Is(err, alert.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err != nil {
		h.log.Error("get alert failed", zap.String("alert_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	events, err := h.store.AlertEvents(id)
	if err != nil {
		h.log.Error("alert events failed", zap.String("alert_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": a, "event_ids": events})
}

type transitionRequest struct {
	Status alert.Status `json:"status" binding:"required"`
}

func (h *handler) transitionAlert(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a, err := h.alerts.ApplyTransition(c.Param("id"), req.Status)
	switch {
	case errors.Is(err, alert.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	case errors.Is(err, alert.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log.Error("transition failed", zap.String("alert_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transition failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": a})
}

type reloadRequest struct {
	Path string `json:"path"`
}

func (h *handler) reloadModel(c *gin.Context) {
	var req reloadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	path := req.Path
	if path == "" {
		path = h.bundlePath
	}

	b, err := classify.LoadBundle(path)
	if err == nil {
		err = b.CompatibleWith(h.eng.FeatureLength())
	}
	if errors.Is(err, classify.ErrBundleIncompatible) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("bundle reload failed", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bundle load failed"})
		return
	}

	h.bundle.Swap(b)
	h.log.Info("classifier bundle reloaded",
		zap.String("path", path),
		zap.String("model_version", b.ModelVersion))
	c.JSON(http.StatusOK, gin.H{"model_version": b.ModelVersion})
}

func (h *handler) health(c *gin.Context) {
	modelVersion := ""
	if b, err := h.bundle.Current(); err == nil {
		modelVersion = b.ModelVersion
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"version":       version.Version,
		"git_sha":       version.GitSHA,
		"model_version": modelVersion,
	})
}
