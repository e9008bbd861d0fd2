package injector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	analyticsservice "github.com/lk2023060901/media-edge-backend/internal/analytics/service"
	assetservice "github.com/lk2023060901/media-edge-backend/internal/asset/service"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
	linkservice "github.com/lk2023060901/media-edge-backend/internal/link/service"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("MEDIA_STORAGE_BLOB_DRIVER", "memory")
	t.Setenv("MEDIA_STORAGE_KV_DRIVER", "memory")
	t.Setenv("MEDIA_SERVER_PUBLIC_BASE_URL", "https://cdn.example.com")

	cfg, err := conf.LoadConfig("", nil)
	require.NoError(t, err)

	app, cleanup, err := InitializeApp(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return app
}

func (a *App) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.HTTPServer.Handler().ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, app *App, name string, content []byte) assetservice.UploadResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := app.serve(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp assetservice.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestEndToEnd(t *testing.T) {
	app := newTestApp(t)
	content := bytes.Repeat([]byte("0123456789"), 100)

	// 相同内容得到相同 id
	first := upload(t, app, "a.bin", content)
	second := upload(t, app, "b.bin", content)
	assert.Equal(t, first.AssetID, second.AssetID)
	assert.Equal(t, "https://cdn.example.com/a/"+first.AssetID, first.CanonicalURL)

	w := app.serve(httptest.NewRequest(http.MethodGet, "/a/"+first.AssetID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())

	req := httptest.NewRequest(http.MethodGet, "/a/"+first.AssetID, nil)
	req.Header.Set("Range", "bytes=10-19")
	w = app.serve(req)
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "0123456789", w.Body.String())
	assert.Equal(t, "bytes 10-19/1000", w.Header().Get("Content-Range"))

	// 短链接：并发跳转后点击数精确
	body, _ := json.Marshal(linkservice.CreateLinkRequest{AssetID: first.AssetID, ShortCode: "launch"})
	req = httptest.NewRequest(http.MethodPost, "/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = app.serve(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := app.serve(httptest.NewRequest(http.MethodGet, "/s/launch", nil))
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, first.CanonicalURL, w.Header().Get("Location"))
		}()
	}
	wg.Wait()
	app.Runner.Wait()

	w = app.serve(httptest.NewRequest(http.MethodGet, "/links/launch", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats linkservice.LinkStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(n), stats.Clicks)

	w = app.serve(httptest.NewRequest(http.MethodGet, "/analytics/events/"+first.AssetID+"?limit=1000", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var events analyticsservice.EventListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events.Events, n)
	assert.Equal(t, "CLICK", events.Events[0].EventType)
	assert.Equal(t, "short-link:launch", events.Events[0].Platform)

	// 尚无聚合快照
	w = app.serve(httptest.NewRequest(http.MethodGet, "/analytics/metrics/"+first.AssetID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"views":0,"plays":0,"clicks":0,"ctr":0}`, w.Body.String())

	w = app.serve(httptest.NewRequest(http.MethodGet, "/s/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	metricsBody, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metricsBody), "media_edge_redirects_total")
	assert.Contains(t, string(metricsBody), "media_edge_background_tasks_total")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, app.Shutdown(ctx))
}
