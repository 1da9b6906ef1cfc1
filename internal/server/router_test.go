package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"campus-face-id/config"
	"campus-face-id/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	translator, err := middleware.NewTranslator(middleware.I18nConfig{DefaultLanguage: "en"})
	if err != nil {
		t.Fatalf("failed to create translator: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.CORSOrigins = origins
	cfg.Server.SessionSecret = "test-secret"

	router := NewRouter(cfg, translator)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": middleware.T(c, "error.no_image")})
	})
	return router
}

func request(router http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	req.Header.Set("Origin", origin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_AllowsAllOrigins(t *testing.T) {
	for _, origins := range [][]string{nil, {"*"}} {
		router := newTestRouter(t, origins)

		w := request(router, http.MethodGet, "http://kiosk.campus.local")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("origins %v: expected wildcard CORS header, got %q", origins, got)
		}

		w = request(router, http.MethodOptions, "http://kiosk.campus.local")
		if w.Code != http.StatusNoContent {
			t.Errorf("expected preflight to return 204, got %d", w.Code)
		}
	}
}

func TestRouter_RestrictedOrigins(t *testing.T) {
	router := newTestRouter(t, []string{"http://admin.campus.local"})

	w := request(router, http.MethodGet, "http://admin.campus.local")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://admin.campus.local" {
		t.Errorf("expected allowed origin to be echoed, got %q", got)
	}

	w = request(router, http.MethodGet, "http://evil.example")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign origin, got %d", w.Code)
	}
}

func TestCORSConfig_AcceptLanguage(t *testing.T) {
	c := corsConfig(nil)
	found := false
	for _, h := range c.AllowHeaders {
		if h == "Accept-Language" {
			found = true
		}
	}
	if !found {
		t.Errorf("Accept-Language missing from allowed headers: %v", c.AllowHeaders)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("invalid cors config: %v", err)
	}
}

func TestRouter_TranslatesByHeader(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Accept-Language", "de")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Body.String() != `{"message":"Keine Bilddaten übermittelt"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
