package opencv

import (
	"fmt"
	"image"
	"os"
	"sync"

	"campus-face-id/config"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

// Standardwerte der Haar-Cascade-Detektion
const (
	DefaultScaleFactor  = 1.3
	DefaultMinNeighbors = 5
)

// Suchpfade, falls die konfigurierte Cascade-Datei fehlt
var fallbackCascadePaths = []string{
	"haarcascade_frontalface_default.xml",
	"/usr/local/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
	"/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
	"/opt/homebrew/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
}

// FaceDetector findet frontale Gesichter mit einer Haar-Cascade
type FaceDetector struct {
	classifier   gocv.CascadeClassifier
	path         string
	scaleFactor  float64
	minNeighbors int
	minSize      image.Point
	mu           sync.Mutex // CascadeClassifier ist nicht threadsicher
}

// NewFaceDetector lädt die Haar-Cascade
func NewFaceDetector(cfg config.OpenCVConfig) (*FaceDetector, error) {
	detector := &FaceDetector{
		classifier:   gocv.NewCascadeClassifier(),
		scaleFactor:  cfg.ScaleFactor,
		minNeighbors: cfg.MinNeighbors,
		minSize:      image.Pt(cfg.MinSizeWidth, cfg.MinSizeHeight),
	}
	if detector.scaleFactor <= 1.0 {
		detector.scaleFactor = DefaultScaleFactor
	}
	if detector.minNeighbors <= 0 {
		detector.minNeighbors = DefaultMinNeighbors
	}

	candidates := append([]string{cfg.CascadePath}, fallbackCascadePaths...)
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if detector.classifier.Load(path) {
			detector.path = path
			break
		}
		log.Warnf("Failed to load cascade classifier from %s", path)
	}

	if detector.path == "" {
		detector.classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier (configured: %s)", cfg.CascadePath)
	}

	log.Infof("Face detector initialized from %s (scale %.2f, min neighbors %d)",
		detector.path, detector.scaleFactor, detector.minNeighbors)
	return detector, nil
}

// Detect gibt die Gesichtsrechtecke eines Graustufenbildes zurück
func (d *FaceDetector) Detect(gray gocv.Mat) []image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.DetectMultiScaleWithParams(gray, d.scaleFactor, d.minNeighbors, 0, d.minSize, image.Point{})
}

// Path gibt die geladene Cascade-Datei zurück
func (d *FaceDetector) Path() string {
	return d.path
}

// Close gibt die Ressourcen des Detektors frei
func (d *FaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
