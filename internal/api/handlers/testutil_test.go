package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"campus-face-id/config"
	"campus-face-id/internal/api/middleware"
	"campus-face-id/internal/core/dataset"
	"campus-face-id/internal/core/models"
	"campus-face-id/internal/core/processor"
	"campus-face-id/internal/db"
	"campus-face-id/internal/db/repository"
	"campus-face-id/internal/server/sse"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeEngine liefert eine feste Vorhersage statt OpenCV
type fakeEngine struct {
	pred *processor.Prediction
	err  error
}

func (e *fakeEngine) Predict(ctx context.Context, data []byte, opts processor.PredictOptions) (*processor.Prediction, error) {
	if e.err != nil {
		return nil, e.err
	}
	p := *e.pred
	return &p, nil
}

func (e *fakeEngine) Ready() bool { return e.err == nil }

// fakeTrainer merkt sich die Trainingsaufrufe
type fakeTrainer struct {
	mu      sync.Mutex
	labels  []int
	samples []dataset.Sample
	err     error
}

func (f *fakeTrainer) AddSample(ctx context.Context, label int, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.labels = append(f.labels, label)
	f.mu.Unlock()
	return nil
}

func (f *fakeTrainer) TrainDataset(ctx context.Context, samples []dataset.Sample, progress func(done, total int)) (*processor.TrainReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.samples = samples
	f.mu.Unlock()
	return &processor.TrainReport{Images: len(samples), Faces: len(samples), Labels: dataset.Labels(samples)}, nil
}

type testEnv struct {
	router  *gin.Engine
	repo    *repository.SQLiteRepository
	engine  *fakeEngine
	trainer *fakeTrainer
	hub     *sse.Hub
	cfg     *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.Open(config.DBConfig{
		File:         "file:" + name + "?mode=memory&cache=shared",
		SeedStudents: true,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close(database) })
	repo := repository.NewSQLiteRepository(database)

	cfg := &config.Config{
		Server: config.ServerConfig{MaxBodyMB: 1},
		OpenCV: config.OpenCVConfig{DatasetDir: t.TempDir()},
	}

	engine := &fakeEngine{pred: &processor.Prediction{FacesFound: 1, Face: &models.BoundingBox{Width: 50, Height: 50}, Label: 1, Distance: 42.123}}
	trainer := &fakeTrainer{}

	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	imageProcessor := processor.NewImageProcessor(repo, engine, cfg, nil)
	imageProcessor.AddNotifier(hub)

	translator, err := middleware.NewTranslator(middleware.I18nConfig{DefaultLanguage: "en"})
	if err != nil {
		t.Fatalf("failed to create translator: %v", err)
	}

	router := gin.New()
	router.Use(middleware.I18n(translator))
	NewAPIHandler(repo, cfg, imageProcessor, engine, trainer, nil, hub).RegisterRoutes(router.Group("/api"))

	return &testEnv{router: router, repo: repo, engine: engine, trainer: trainer, hub: hub, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
}

func assertJSONEqual(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	var got, expected interface{}
	parseJSONResponse(t, w, &got)
	if err := json.Unmarshal([]byte(want), &expected); err != nil {
		t.Fatalf("invalid expected JSON: %v", err)
	}
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(expected)
	if !bytes.Equal(gotJSON, wantJSON) {
		t.Errorf("unexpected body:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	parseJSONResponse(t, w, &body)
	msg, _ := body["error"].(string)
	return msg
}
