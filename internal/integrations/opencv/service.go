package opencv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"campus-face-id/config"
	"campus-face-id/internal/core/models"
	"campus-face-id/internal/core/processor"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

var (
	boxColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Service ist der Hauptdienst für die OpenCV-Integration
type Service struct {
	cfg        config.OpenCVConfig
	detector   *FaceDetector
	recognizer *Recognizer
	DebugSvc   *DebugService // Debug-Service für die Visualisierung
	trainMu    sync.Mutex    // nur ein Trainingslauf gleichzeitig
}

// Status beschreibt den Zustand der Engine für /api/status
type Status struct {
	CascadePath string `json:"cascade_path"`
	ModelPath   string `json:"model_path"`
	ModelLoaded bool   `json:"model_loaded"`
}

// NewService erstellt einen neuen OpenCV-Service
func NewService(cfg config.OpenCVConfig) (*Service, error) {
	detector, err := NewFaceDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("konnte Gesichtsdetektor nicht initialisieren: %w", err)
	}

	return &Service{
		cfg:        cfg,
		detector:   detector,
		recognizer: NewRecognizer(cfg),
		DebugSvc:   NewDebugService(cfg.DebugImages),
	}, nil
}

// Ready meldet, ob ein trainiertes Modell geladen ist
func (s *Service) Ready() bool {
	return s.recognizer.Loaded()
}

// Status gibt Pfade und Modellzustand zurück
func (s *Service) Status() Status {
	return Status{
		CascadePath: s.detector.Path(),
		ModelPath:   s.cfg.ModelPath,
		ModelLoaded: s.recognizer.Loaded(),
	}
}

// Predict dekodiert das Bild, sucht das erste Gesicht und klassifiziert es
func (s *Service) Predict(ctx context.Context, imageData []byte, opts processor.PredictOptions) (*processor.Prediction, error) {
	if !s.recognizer.Loaded() {
		return nil, processor.ErrModelNotLoaded
	}

	mat, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := toGray(mat)
	defer gray.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rects := s.detector.Detect(gray)
	pred := &processor.Prediction{
		FacesFound: len(rects),
		Label:      processor.NoMatchLabel,
	}
	log.Debugf("Detected %d face(s) in %dx%d image", len(rects), mat.Cols(), mat.Rows())

	if len(rects) > 0 {
		// Wie beim Training wird nur das erste Gesicht ausgewertet
		rect := rects[0]
		pred.Face = &models.BoundingBox{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		face := cropFace(gray, rect)
		label, distance, err := s.recognizer.Predict(face)
		face.Close()
		switch {
		case errors.Is(err, processor.ErrModelNotLoaded):
			return nil, err
		case err != nil:
			// Fehlgeschlagene Vorhersage zählt als kein Treffer
			log.Errorf("LBPH prediction failed: %v", err)
		default:
			pred.Label = label
			pred.Distance = distance
		}
	}

	if opts.Annotate {
		data, err := annotate(mat, rects, pred)
		if err != nil {
			log.Warnf("Failed to render debug image: %v", err)
		} else {
			pred.Annotated = data
		}
	}

	return pred, nil
}

// cropFace schneidet das Gesicht als eigenständige Matrix aus
func cropFace(gray gocv.Mat, rect image.Rectangle) gocv.Mat {
	region := gray.Region(rect.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows())))
	defer region.Close()
	return region.Clone()
}

// annotate zeichnet alle Gesichter ein und beschriftet das ausgewertete
func annotate(src gocv.Mat, rects []image.Rectangle, pred *processor.Prediction) ([]byte, error) {
	canvas := src.Clone()
	defer canvas.Close()

	for i, rect := range rects {
		thickness := 1
		if i == 0 {
			thickness = 2
		}
		gocv.Rectangle(&canvas, rect, boxColor, thickness)
	}

	if len(rects) > 0 {
		text := predictionLabel(pred)
		origin := image.Pt(rects[0].Min.X, max(rects[0].Min.Y-8, 12))
		gocv.PutText(&canvas, text, origin, gocv.FontHersheyPlain, 1.2, textColor, 2)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, canvas)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

func predictionLabel(pred *processor.Prediction) string {
	if pred.Label == processor.NoMatchLabel {
		return "unknown"
	}
	return fmt.Sprintf("#%d %.2f%%", pred.Label, processor.ConfidenceFromDistance(pred.Distance))
}

// Close gibt die Ressourcen des OpenCV-Service frei
func (s *Service) Close() error {
	return s.detector.Close()
}
