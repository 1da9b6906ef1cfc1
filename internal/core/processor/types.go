package processor

import (
	"context"
	"errors"
	"time"

	"campus-face-id/internal/core/dataset"
	"campus-face-id/internal/core/models"
)

var (
	// ErrNoImage: die Anfrage enthält keine Bilddaten
	ErrNoImage = errors.New("no image data provided")
	// ErrInvalidBase64: die Bilddaten sind kein gültiges Base64
	ErrInvalidBase64 = errors.New("invalid base64 image data")
	// ErrUndecodableImage: die Bytes lassen sich nicht als Bild dekodieren
	ErrUndecodableImage = errors.New("cannot decode image")
	// ErrModelNotLoaded: es ist kein trainiertes LBPH-Modell geladen
	ErrModelNotLoaded = errors.New("recognition model is not loaded")
	// ErrNoFace: im Bild wurde kein Gesicht gefunden (nur beim Training ein Fehler)
	ErrNoFace = errors.New("no face detected")
	// ErrPoolClosed: der Worker-Pool wurde heruntergefahren
	ErrPoolClosed = errors.New("recognition pool is shut down")
)

// NoMatchLabel ist das Label, das der Recognizer ohne Treffer liefert
const NoMatchLabel = -1

// Prediction ist das Ergebnis von Detektion und Klassifikation eines Bildes
type Prediction struct {
	FacesFound int
	Face       *models.BoundingBox // erstes erkanntes Gesicht, nil ohne Gesicht
	Label      int
	Distance   float64
	Annotated  []byte // JPEG mit eingezeichnetem Gesicht, nur wenn angefordert
}

// PredictOptions steuert optionale Ausgaben der Engine
type PredictOptions struct {
	Annotate bool
}

// Engine kapselt Gesichtsdetektion und LBPH-Klassifikation
type Engine interface {
	Predict(ctx context.Context, imageData []byte, opts PredictOptions) (*Prediction, error)
	Ready() bool
}

// Trainer erweitert oder ersetzt das LBPH-Modell
type Trainer interface {
	AddSample(ctx context.Context, label int, imageData []byte) error
	TrainDataset(ctx context.Context, samples []dataset.Sample, progress func(done, total int)) (*TrainReport, error)
}

// TrainReport fasst einen Trainingslauf zusammen
type TrainReport struct {
	Images   int           `json:"images"`
	Faces    int           `json:"faces"`
	Labels   []int         `json:"labels"`
	Skipped  []string      `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Request ist eine Erkennungsanfrage
type Request struct {
	RequestID string
	Source    string
	Image     string // Base64, optional als data-URL
}

// Result ist die Antwort auf eine Erkennungsanfrage
type Result struct {
	RequestID  string              `json:"request_id"`
	Source     string              `json:"source"`
	Success    bool                `json:"success"`
	Student    *models.Student     `json:"student,omitempty"`
	Confidence *float64            `json:"confidence,omitempty"`
	Label      *int                `json:"label,omitempty"`
	FacesFound int                 `json:"faces_found"`
	Face       *models.BoundingBox `json:"face,omitempty"`
	DebugImage string              `json:"debug_image,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
	DurationMs int64               `json:"duration_ms"`
}

// Recognizer verarbeitet Erkennungsanfragen
type Recognizer interface {
	Recognize(ctx context.Context, req Request) (*Result, error)
}

// Notifier wird über jedes Erkennungsergebnis informiert
type Notifier interface {
	NotifyRecognition(result *Result)
}

// DebugSink nimmt annotierte Debug-Bilder entgegen
type DebugSink interface {
	AddDebugImage(id, source string, imgData []byte, faces int)
}
