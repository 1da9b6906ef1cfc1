package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"campus-face-id/config"
	"campus-face-id/internal/api/middleware"
	"campus-face-id/internal/core/processor"
	"campus-face-id/internal/db/repository"
	"campus-face-id/internal/server/sse"
	"campus-face-id/internal/util/timezone"
	"campus-face-id/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// APIHandler behandelt API-Anfragen für das System
type APIHandler struct {
	repo       repository.Repository
	cfg        *config.Config
	recognizer processor.Recognizer
	engine     processor.Engine
	trainer    processor.Trainer
	pool       utils.PoolStats
	sseHub     *sse.Hub
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(repo repository.Repository, cfg *config.Config, recognizer processor.Recognizer,
	engine processor.Engine, trainer processor.Trainer, pool utils.PoolStats, sseHub *sse.Hub) *APIHandler {
	return &APIHandler{
		repo:       repo,
		cfg:        cfg,
		recognizer: recognizer,
		engine:     engine,
		trainer:    trainer,
		pool:       pool,
		sseHub:     sseHub,
	}
}

// RegisterRoutes registriert alle API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Erkennung
	router.POST("/recognize", h.Recognize)
	router.GET("/recognitions", h.ListRecognitions)

	// Studierendenverzeichnis
	router.GET("/students", h.ListStudents)
	router.POST("/students", h.CreateStudent)
	router.GET("/students/:id", h.GetStudent)
	router.PUT("/students/:id", h.UpdateStudent)
	router.DELETE("/students/:id", h.DeleteStudent)

	// Training
	router.POST("/students/:id/samples", h.AddSample)
	router.POST("/train", h.Train)

	// System
	router.GET("/events", h.Events)
	router.GET("/status", h.GetStatus)
	router.GET("/health", h.Health)
}

// Feste Antworttexte von /recognize, unabhängig von der Sprache des Clients
const (
	msgNoImage = "No image data provided"
	msgNoMatch = "No match found or confidence too low"
)

var errImageNotString = errors.New("image must be a base64 string")

// bindImage liest den JSON-Body und liefert den Wert des Schlüssels "image".
// Nur ein fehlender Body, ungültiges JSON oder ein fehlender Schlüssel werden
// mit noImage beantwortet; false bedeutet, dass bereits geantwortet wurde.
func (h *APIHandler) bindImage(c *gin.Context, noImage string) (json.RawMessage, bool) {
	if h.cfg.Server.MaxBodyMB > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.cfg.Server.MaxBodyMB)<<20)
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return nil, false
		}
		log.Debugf("Invalid request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": noImage})
		return nil, false
	}
	raw, found := body["image"]
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": noImage})
		return nil, false
	}
	return raw, true
}

// imageString wandelt den Rohwert von "image" in einen String; null und
// Nicht-Strings sind Fehler
func imageString(raw json.RawMessage) (string, error) {
	var image *string
	if err := json.Unmarshal(raw, &image); err != nil || image == nil {
		return "", errImageNotString
	}
	return *image, nil
}

// Recognize erkennt einen Studierenden auf einem Base64-Bild
func (h *APIHandler) Recognize(c *gin.Context) {
	raw, ok := h.bindImage(c, msgNoImage)
	if !ok {
		return
	}

	image, err := imageString(raw)
	if err != nil {
		log.Errorf("Recognition failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := h.recognizer.Recognize(c.Request.Context(), processor.Request{
		Source: "http",
		Image:  image,
	})
	if err != nil {
		status, msg := recognitionError(c, err)
		log.Errorf("Recognition failed: %v", err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if !result.Success {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": msgNoMatch,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"student":    result.Student,
		"confidence": *result.Confidence,
	})
}

// recognitionError ordnet Pipeline-Fehlern Statuscode und Meldung zu
func recognitionError(c *gin.Context, err error) (int, string) {
	switch {
	case errors.Is(err, processor.ErrModelNotLoaded):
		return http.StatusServiceUnavailable, middleware.T(c, "error.model_not_loaded")
	case errors.Is(err, processor.ErrPoolClosed), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, middleware.T(c, "error.busy")
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// ListRecognitions gibt das Erkennungsprotokoll seitenweise zurück
func (h *APIHandler) ListRecognitions(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := repository.RecognitionFilter{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if s := c.Query("success"); s != "" {
		success, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid success filter"})
			return
		}
		filter.Success = &success
	}

	recognitions, total, err := h.repo.GetRecognitions(filter)
	if err != nil {
		log.Errorf("Failed to load recognitions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recognitions": recognitions,
		"total":        total,
		"page":         page,
		"pageSize":     pageSize,
	})
}

// GetStatus liefert Modellzustand, Statistiken und Prozesskennzahlen
func (h *APIHandler) GetStatus(c *gin.Context) {
	status := gin.H{
		"status":    "ok",
		"timestamp": timezone.Now(),
		"model": gin.H{
			"loaded":       h.engine != nil && h.engine.Ready(),
			"model_path":   h.cfg.OpenCV.ModelPath,
			"cascade_path": h.cfg.OpenCV.CascadePath,
		},
		"mqtt": gin.H{
			"enabled": h.cfg.MQTT.Enabled,
		},
		"system": utils.GetSystemStats(h.pool),
	}

	if h.sseHub != nil {
		status["sse_clients"] = h.sseHub.ClientCount()
	}

	stats, err := h.repo.GetStatistics()
	if err != nil {
		log.Warnf("Failed to load statistics: %v", err)
		status["statistics_error"] = err.Error()
	} else {
		status["statistics"] = stats
	}

	c.JSON(http.StatusOK, status)
}

// Health ist der Liveness-Check
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
