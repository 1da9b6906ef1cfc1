package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"campus-face-id/config"
	"campus-face-id/internal/core/models"
	"campus-face-id/internal/db/repository"
	"campus-face-id/internal/util/timezone"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ImageProcessor führt die Erkennungspipeline aus: Dekodieren, Detektion,
// Klassifikation, Verzeichnis-Lookup, Protokollierung und Benachrichtigung.
type ImageProcessor struct {
	repo      repository.Repository
	engine    Engine
	cfg       *config.Config
	debug     DebugSink
	notifiers []Notifier
}

// NewImageProcessor erstellt einen neuen Erkennungsprozessor
func NewImageProcessor(repo repository.Repository, engine Engine, cfg *config.Config, debug DebugSink) *ImageProcessor {
	return &ImageProcessor{
		repo:   repo,
		engine: engine,
		cfg:    cfg,
		debug:  debug,
	}
}

// AddNotifier registriert einen Empfänger für Erkennungsergebnisse
func (p *ImageProcessor) AddNotifier(n Notifier) {
	if n != nil {
		p.notifiers = append(p.notifiers, n)
	}
}

// Recognize verarbeitet eine Anfrage synchron
func (p *ImageProcessor) Recognize(ctx context.Context, req Request) (*Result, error) {
	return p.processImageInternal(ctx, req)
}

func (p *ImageProcessor) processImageInternal(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Source == "" {
		req.Source = "http"
	}

	result := &Result{
		RequestID: req.RequestID,
		Source:    req.Source,
		Timestamp: timezone.Now(),
	}
	record := &models.Recognition{
		RequestID: req.RequestID,
		Source:    req.Source,
	}

	fail := func(err error) (*Result, error) {
		record.Error = err.Error()
		record.DurationMs = time.Since(start).Milliseconds()
		p.saveRecord(record)
		return nil, err
	}

	data, err := DecodeBase64Image(req.Image)
	if err != nil {
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	annotate := p.debug != nil || p.cfg.OpenCV.SaveDebugImages
	pred, err := p.engine.Predict(ctx, data, PredictOptions{Annotate: annotate})
	if err != nil {
		return fail(fmt.Errorf("recognition failed: %w", err))
	}

	result.FacesFound = pred.FacesFound
	record.FacesFound = pred.FacesFound

	if pred.Face != nil {
		result.Face = pred.Face
		if box, err := json.Marshal(pred.Face); err == nil {
			record.BoundingBox = datatypes.JSON(box)
		}
		p.evaluate(pred, result, record)
	} else {
		log.WithField("request_id", req.RequestID).Info("No face detected")
	}

	if err := p.lookupStudent(result, record); err != nil {
		return fail(err)
	}

	if len(pred.Annotated) > 0 {
		result.DebugImage = p.storeDebugImage(req, pred)
		record.DebugImage = result.DebugImage
	}

	result.DurationMs = time.Since(start).Milliseconds()
	record.DurationMs = result.DurationMs
	record.Success = result.Success
	p.saveRecord(record)

	for _, n := range p.notifiers {
		n.NotifyRecognition(result)
	}

	return result, nil
}

// evaluate überträgt Label und Konfidenz aus der Vorhersage
func (p *ImageProcessor) evaluate(pred *Prediction, result *Result, record *models.Recognition) {
	if pred.Label == NoMatchLabel {
		log.WithField("request_id", result.RequestID).Info("Face did not match any trained label")
		return
	}

	label := pred.Label
	distance := pred.Distance
	confidence := ConfidenceFromDistance(distance)

	log.WithField("request_id", result.RequestID).
		Infof("Recognized label %d with confidence %.2f%%", label, confidence)

	result.Label = &label
	result.Confidence = &confidence
	record.Label = &label
	record.Distance = &distance
	record.Confidence = &confidence
}

// lookupStudent sucht den Studierenden zum Label und prüft die Mindestkonfidenz
func (p *ImageProcessor) lookupStudent(result *Result, record *models.Recognition) error {
	if result.Label == nil {
		return nil
	}

	if minConf := p.cfg.Recognition.MinConfidence; minConf > 0 && *result.Confidence < minConf {
		log.WithField("request_id", result.RequestID).
			Infof("Confidence %.2f%% below minimum %.2f%%", *result.Confidence, minConf)
		return nil
	}

	student, err := p.repo.GetStudentByLabel(*result.Label)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			log.WithField("request_id", result.RequestID).
				Warnf("Label %d is not in the student directory", *result.Label)
			return nil
		}
		return fmt.Errorf("student lookup failed: %w", err)
	}

	result.Success = true
	result.Student = student
	record.StudentID = &student.ID
	return nil
}

// storeDebugImage übergibt das annotierte Bild an den Debug-Speicher und
// schreibt es bei Bedarf ins Snapshot-Verzeichnis
func (p *ImageProcessor) storeDebugImage(req Request, pred *Prediction) string {
	if p.debug != nil {
		p.debug.AddDebugImage(req.RequestID, req.Source, pred.Annotated, pred.FacesFound)
	}

	if !p.cfg.OpenCV.SaveDebugImages || p.cfg.Server.SnapshotDir == "" {
		return ""
	}

	filename := fmt.Sprintf("%s_%s.jpg", timezone.Now().Format("20060102_150405"), req.RequestID)
	path := filepath.Join(p.cfg.Server.SnapshotDir, filename)
	if err := os.WriteFile(path, pred.Annotated, 0644); err != nil {
		log.Warnf("Failed to write debug image %s: %v", path, err)
		return ""
	}
	return filename
}

func (p *ImageProcessor) saveRecord(record *models.Recognition) {
	if p.repo == nil {
		return
	}
	if err := p.repo.SaveRecognition(record); err != nil {
		log.WithError(err).Warn("Failed to store recognition record")
	}
}
