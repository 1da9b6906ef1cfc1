package handlers

import (
	"errors"
	"net/http"

	"campus-face-id/internal/api/middleware"
	"campus-face-id/internal/core/dataset"
	"campus-face-id/internal/core/processor"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AddSample fügt ein Base64-Bild als Trainingsbeispiel für einen Studierenden hinzu
func (h *APIHandler) AddSample(c *gin.Context) {
	label, ok := labelParam(c)
	if !ok {
		return
	}

	student, err := h.repo.GetStudentByLabel(label)
	if err != nil {
		studentError(c, err)
		return
	}

	raw, ok := h.bindImage(c, middleware.T(c, "error.no_image"))
	if !ok {
		return
	}

	image, err := imageString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_image", map[string]interface{}{"Error": err.Error()})})
		return
	}

	data, err := processor.DecodeBase64Image(image)
	if err != nil {
		if errors.Is(err, processor.ErrNoImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.no_image")})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_image", map[string]interface{}{"Error": err.Error()})})
		return
	}

	if err := h.trainer.AddSample(c.Request.Context(), label, data); err != nil {
		switch {
		case errors.Is(err, processor.ErrNoFace):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": middleware.T(c, "error.no_face")})
		case errors.Is(err, processor.ErrUndecodableImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_image", map[string]interface{}{"Error": err.Error()})})
		default:
			log.Errorf("Failed to add training sample for label %d: %v", label, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": middleware.T(c, "training.sample_added", map[string]interface{}{"Name": student.Name}),
		"student": student,
	})
}

// Train trainiert das Modell neu aus dem Datensatzverzeichnis
func (h *APIHandler) Train(c *gin.Context) {
	samples, skipped, err := dataset.Scan(h.cfg.OpenCV.DatasetDir)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dataset.ErrEmptyDataset) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": middleware.T(c, "error.dataset", map[string]interface{}{"Error": err.Error()})})
		return
	}

	log.Infof("Training from %s: %d images, %d skipped files", h.cfg.OpenCV.DatasetDir, len(samples), len(skipped))

	report, err := h.trainer.TrainDataset(c.Request.Context(), samples, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, processor.ErrNoFace) {
			status = http.StatusUnprocessableEntity
		}
		log.Errorf("Training failed: %v", err)
		c.JSON(status, gin.H{"error": middleware.T(c, "error.dataset", map[string]interface{}{"Error": err.Error()})})
		return
	}
	report.Skipped = append(report.Skipped, skipped...)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": middleware.T(c, "training.completed", map[string]interface{}{"Faces": report.Faces, "Images": report.Images}),
		"report":  report,
	})
}
