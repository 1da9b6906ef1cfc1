package processor

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"campus-face-id/config"
	"campus-face-id/internal/core/models"
	"campus-face-id/internal/db/repository"
)

// fakeEngine liefert eine feste Vorhersage
type fakeEngine struct {
	pred  *Prediction
	err   error
	delay time.Duration
	mu    sync.Mutex
	calls int
	opts  []PredictOptions
}

func (e *fakeEngine) Predict(ctx context.Context, data []byte, opts PredictOptions) (*Prediction, error) {
	e.mu.Lock()
	e.calls++
	e.opts = append(e.opts, opts)
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	p := *e.pred
	return &p, nil
}

func (e *fakeEngine) Ready() bool { return e.err == nil }

// fakeRepo hält Studierende und Protokolleinträge im Speicher
type fakeRepo struct {
	mu       sync.Mutex
	students map[int]*models.Student
	records  []models.Recognition
}

func newFakeRepo(students ...models.Student) *fakeRepo {
	r := &fakeRepo{students: make(map[int]*models.Student)}
	for i := range students {
		s := students[i]
		r.students[int(s.ID)] = &s
	}
	return r
}

func (r *fakeRepo) GetStudentByLabel(label int) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[label]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	c := *s
	return &c, nil
}

func (r *fakeRepo) GetStudents() ([]models.Student, error) { return nil, nil }
func (r *fakeRepo) CreateStudent(*models.Student) error   { return nil }
func (r *fakeRepo) UpdateStudent(*models.Student) error   { return nil }
func (r *fakeRepo) DeleteStudent(int) error               { return nil }

func (r *fakeRepo) SaveRecognition(rec *models.Recognition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeRepo) GetRecognitions(repository.RecognitionFilter) ([]models.Recognition, int64, error) {
	return nil, 0, nil
}

func (r *fakeRepo) DeleteRecognitionsBefore(time.Time) ([]models.Recognition, error) {
	return nil, nil
}

func (r *fakeRepo) GetStatistics() (models.Statistics, error) { return models.Statistics{}, nil }

func (r *fakeRepo) lastRecord(t *testing.T) models.Recognition {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		t.Fatal("expected a stored recognition record")
	}
	return r.records[len(r.records)-1]
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []*Result
}

func (n *recordingNotifier) NotifyRecognition(r *Result) {
	n.mu.Lock()
	n.results = append(n.results, r)
	n.mu.Unlock()
}

type recordingSink struct {
	ids []string
}

func (s *recordingSink) AddDebugImage(id, source string, imgData []byte, faces int) {
	s.ids = append(s.ids, id)
}

var testImage = base64.StdEncoding.EncodeToString([]byte("image bytes"))

func testStudent() models.Student {
	return models.Student{ID: 1, Name: "John Davis", StudentID: "STU-10045"}
}

func faceAt() *models.BoundingBox {
	return &models.BoundingBox{X: 10, Y: 20, Width: 100, Height: 100}
}

func TestRecognize_Match(t *testing.T) {
	repo := newFakeRepo(testStudent())
	engine := &fakeEngine{pred: &Prediction{FacesFound: 1, Face: faceAt(), Label: 1, Distance: 42.123}}
	notifier := &recordingNotifier{}

	p := NewImageProcessor(repo, engine, &config.Config{}, nil)
	p.AddNotifier(notifier)

	result, err := p.Recognize(context.Background(), Request{Image: testImage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatal("expected a successful match")
	}
	if result.Student == nil || result.Student.Name != "John Davis" {
		t.Errorf("unexpected student: %+v", result.Student)
	}
	if result.Confidence == nil || *result.Confidence != 57.88 {
		t.Errorf("expected confidence 57.88, got %v", result.Confidence)
	}
	if result.Source != "http" {
		t.Errorf("expected default source http, got %q", result.Source)
	}
	if result.RequestID == "" {
		t.Error("expected a generated request id")
	}

	rec := repo.lastRecord(t)
	if !rec.Success || rec.StudentID == nil || *rec.StudentID != 1 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Distance == nil || *rec.Distance != 42.123 {
		t.Errorf("expected stored distance 42.123, got %v", rec.Distance)
	}
	if len(rec.BoundingBox) == 0 {
		t.Error("expected stored bounding box")
	}
	if len(notifier.results) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.results))
	}
	if engine.opts[0].Annotate {
		t.Error("annotation requested without debug sink")
	}
}

func TestRecognize_NoMatch(t *testing.T) {
	tests := []struct {
		name          string
		pred          *Prediction
		minConfidence float64
	}{
		{name: "no face", pred: &Prediction{FacesFound: 0, Label: NoMatchLabel}},
		{name: "unknown label", pred: &Prediction{FacesFound: 1, Face: faceAt(), Label: 7, Distance: 30}},
		{name: "model rejects face", pred: &Prediction{FacesFound: 1, Face: faceAt(), Label: NoMatchLabel}},
		{name: "below minimum confidence", pred: &Prediction{FacesFound: 1, Face: faceAt(), Label: 1, Distance: 70}, minConfidence: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo(testStudent())
			cfg := &config.Config{Recognition: config.RecognitionConfig{MinConfidence: tt.minConfidence}}
			p := NewImageProcessor(repo, &fakeEngine{pred: tt.pred}, cfg, nil)

			result, err := p.Recognize(context.Background(), Request{Image: testImage, Source: "test"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success || result.Student != nil {
				t.Errorf("expected no match, got %+v", result)
			}
			if rec := repo.lastRecord(t); rec.Success || rec.Source != "test" {
				t.Errorf("unexpected record: %+v", rec)
			}
		})
	}
}

func TestRecognize_MinConfidenceReached(t *testing.T) {
	repo := newFakeRepo(testStudent())
	cfg := &config.Config{Recognition: config.RecognitionConfig{MinConfidence: 50}}
	engine := &fakeEngine{pred: &Prediction{FacesFound: 1, Face: faceAt(), Label: 1, Distance: 40}}

	result, err := NewImageProcessor(repo, engine, cfg, nil).Recognize(context.Background(), Request{Image: testImage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("expected match with confidence 60 above minimum 50")
	}
}

func TestRecognize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		image   string
		engine  *fakeEngine
		wantErr error
	}{
		{name: "empty image", image: "", engine: &fakeEngine{}, wantErr: ErrNoImage},
		{name: "invalid base64", image: "%%%", engine: &fakeEngine{}, wantErr: ErrInvalidBase64},
		{name: "undecodable", image: testImage, engine: &fakeEngine{err: ErrUndecodableImage}, wantErr: ErrUndecodableImage},
		{name: "model missing", image: testImage, engine: &fakeEngine{err: ErrModelNotLoaded}, wantErr: ErrModelNotLoaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			notifier := &recordingNotifier{}
			p := NewImageProcessor(repo, tt.engine, &config.Config{}, nil)
			p.AddNotifier(notifier)

			_, err := p.Recognize(context.Background(), Request{Image: tt.image})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if rec := repo.lastRecord(t); rec.Error == "" || rec.Success {
				t.Errorf("expected failed record with error, got %+v", rec)
			}
			if len(notifier.results) != 0 {
				t.Error("failed recognitions must not be broadcast")
			}
		})
	}
}

func TestRecognize_DebugImages(t *testing.T) {
	snapshotDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{SnapshotDir: snapshotDir},
		OpenCV: config.OpenCVConfig{SaveDebugImages: true},
	}
	engine := &fakeEngine{pred: &Prediction{FacesFound: 1, Face: faceAt(), Label: 1, Distance: 20, Annotated: []byte("jpeg")}}
	sink := &recordingSink{}
	repo := newFakeRepo(testStudent())

	result, err := NewImageProcessor(repo, engine, cfg, sink).Recognize(context.Background(), Request{RequestID: "req-1", Image: testImage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !engine.opts[0].Annotate {
		t.Error("expected annotation to be requested")
	}
	if len(sink.ids) != 1 || sink.ids[0] != "req-1" {
		t.Errorf("expected debug image for req-1, got %v", sink.ids)
	}
	if result.DebugImage == "" {
		t.Fatal("expected debug image file name")
	}
	data, err := os.ReadFile(filepath.Join(snapshotDir, result.DebugImage))
	if err != nil {
		t.Fatalf("debug image not written: %v", err)
	}
	if string(data) != "jpeg" {
		t.Errorf("unexpected debug image content %q", data)
	}
	if rec := repo.lastRecord(t); rec.DebugImage != result.DebugImage {
		t.Errorf("record references %q, want %q", rec.DebugImage, result.DebugImage)
	}
}
