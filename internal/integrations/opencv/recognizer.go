package opencv

import (
	"fmt"
	"os"
	"sync"

	"campus-face-id/config"
	"campus-face-id/internal/core/processor"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// Recognizer kapselt das LBPH-Modell. Vorhersagen laufen parallel,
// Training und Updates exklusiv.
type Recognizer struct {
	cfg    config.OpenCVConfig
	model  *contrib.LBPHFaceRecognizer
	loaded bool
	mu     sync.RWMutex
}

// NewRecognizer erstellt einen Recognizer und lädt das Modell, falls vorhanden
func NewRecognizer(cfg config.OpenCVConfig) *Recognizer {
	r := &Recognizer{
		cfg:   cfg,
		model: newLBPH(cfg),
	}

	if cfg.ModelPath == "" {
		log.Warn("No LBPH model path configured, recognizer starts untrained")
		return r
	}
	if err := r.Load(cfg.ModelPath); err != nil {
		log.Warnf("LBPH model not loaded: %v", err)
	}
	return r
}

func newLBPH(cfg config.OpenCVConfig) *contrib.LBPHFaceRecognizer {
	model := contrib.NewLBPHFaceRecognizer()
	if cfg.Radius > 0 {
		model.SetRadius(cfg.Radius)
	}
	if cfg.Neighbors > 0 {
		model.SetNeighbors(cfg.Neighbors)
	}
	if cfg.Threshold > 0 {
		model.SetThreshold(float32(cfg.Threshold))
	}
	return model
}

// Load liest ein trainiertes Modell (trainer.yml)
func (r *Recognizer) Load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model file %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("model file %s is empty", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.model.LoadFile(path)
	// Nach dem Laden gilt der Schwellenwert aus der Konfiguration
	if r.cfg.Threshold > 0 {
		r.model.SetThreshold(float32(r.cfg.Threshold))
	}
	r.loaded = true
	log.Infof("LBPH model loaded from %s", path)
	return nil
}

// Loaded meldet, ob ein trainiertes Modell vorliegt
func (r *Recognizer) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Predict klassifiziert ein Graustufen-Gesicht und gibt Label und Distanz zurück
func (r *Recognizer) Predict(face gocv.Mat) (int, float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return processor.NoMatchLabel, 0, processor.ErrModelNotLoaded
	}
	resp := r.model.PredictExtendedResponse(face)
	return int(resp.Label), float64(resp.Confidence), nil
}

// Update ergänzt das Modell um weitere Gesichter
func (r *Recognizer) Update(faces []gocv.Mat, labels []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		r.model.Update(faces, labels)
	} else {
		r.model.Train(faces, labels)
		r.loaded = true
	}
}

// Replace trainiert das vorhandene Modell neu; Train verwirft dabei alle
// bisherigen Histogramme. gocv bietet kein Close für LBPHFaceRecognizer,
// ein zweites Modell würde nie freigegeben.
func (r *Recognizer) Replace(faces []gocv.Mat, labels []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.model.Train(faces, labels)
	r.loaded = true
}

// Save schreibt das Modell auf die Platte
func (r *Recognizer) Save(path string) error {
	if path == "" {
		return fmt.Errorf("no model path configured")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return processor.ErrModelNotLoaded
	}

	// Erst in eine temporäre Datei schreiben, damit ein Absturz das Modell nicht zerstört
	tmp := path + ".tmp.yml"
	r.model.SaveFile(tmp)
	if _, err := os.Stat(tmp); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	log.Infof("LBPH model saved to %s", path)
	return nil
}
