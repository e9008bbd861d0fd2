package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	analyticsbiz "github.com/lk2023060901/media-edge-backend/internal/analytics/biz"
	analyticsdata "github.com/lk2023060901/media-edge-backend/internal/analytics/data"
	analyticsservice "github.com/lk2023060901/media-edge-backend/internal/analytics/service"
	assetbiz "github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	assetdata "github.com/lk2023060901/media-edge-backend/internal/asset/data"
	assetservice "github.com/lk2023060901/media-edge-backend/internal/asset/service"
	"github.com/lk2023060901/media-edge-backend/internal/background"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
	linkbiz "github.com/lk2023060901/media-edge-backend/internal/link/biz"
	linkdata "github.com/lk2023060901/media-edge-backend/internal/link/data"
	linkservice "github.com/lk2023060901/media-edge-backend/internal/link/service"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cors conf.CORSConfig) *HTTPServer {
	t.Helper()

	log := logger.NewNop()
	kv := kvstore.NewMemory()
	addr, err := assetbiz.NewAddresser(assetbiz.AlgorithmSHA256, assetbiz.DefaultIDLength)
	require.NoError(t, err)

	assets := assetbiz.NewAssetUseCase(assetdata.NewMemoryBlobStore(), assetdata.NewAssetRepo(kv), addr, "http://edge.test", log)
	analytics := analyticsbiz.NewAnalyticsUseCase(analyticsdata.NewEventRepo(kv), analyticsdata.NewSnapshotRepo(kv), time.Hour, log)
	runner := background.NewRunner(nil, log, time.Second)
	links := linkbiz.NewLinkUseCase(linkdata.NewLinkRepo(kv), assets, analytics, runner, "http://edge.test", log)

	cfg := &conf.Config{
		Server: conf.ServerConfig{Host: "127.0.0.1", Port: 0},
		CORS:   cors,
	}
	return NewHTTPServer(cfg, log,
		assetservice.NewAssetService(assets, log, 1<<20),
		linkservice.NewLinkService(links, log),
		analyticsservice.NewAnalyticsService(analytics, log, time.Minute),
	)
}

var permissive = conf.CORSConfig{
	AllowOrigins:  []string{"*"},
	AllowMethods:  []string{"GET", "HEAD", "POST", "OPTIONS"},
	AllowHeaders:  []string{"Content-Type", "Range"},
	ExposeHeaders: []string{"Content-Range", "ETag"},
	MaxAge:        time.Hour,
}

func serve(s *HTTPServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, permissive)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	_, err := time.Parse(time.RFC3339, body["time"])
	assert.NoError(t, err)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, permissive)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"preflight", http.MethodOptions, "/upload", http.StatusNoContent},
		{"preflight unknown path", http.MethodOptions, "/nowhere", http.StatusNoContent},
		{"normal response", http.MethodGet, "/health", http.StatusOK},
		{"error response", http.MethodGet, "/a/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, HEAD, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, Range", w.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "Content-Range, ETag", w.Header().Get("Access-Control-Expose-Headers"))
			if tt.method == http.MethodOptions {
				assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
				assert.Empty(t, w.Body.String())
			}
		})
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	s := newTestServer(t, conf.CORSConfig{AllowOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(s, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(s, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, permissive)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/definitely/not/here", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":1002`)

	w = serve(s, httptest.NewRequest(http.MethodDelete, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Header().Get("Allow"), http.MethodPost)
	assert.Contains(t, w.Body.String(), `"code":1009`)

	w = serve(s, httptest.NewRequest(http.MethodPut, "/a/abc", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	allow := w.Header().Get("Allow")
	assert.True(t, strings.Contains(allow, http.MethodGet) && strings.Contains(allow, http.MethodHead), allow)
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t, permissive)
	s.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := serve(s, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":1000`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, permissive)
	serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "media_edge_http_requests_total")
}
