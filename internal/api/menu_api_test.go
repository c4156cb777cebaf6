package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ohbang/internal/config"
	"ohbang/internal/database"
	"ohbang/internal/events"
	"ohbang/internal/models"
	"ohbang/internal/repository"
	"ohbang/internal/service"
	"ohbang/internal/store"
	"ohbang/internal/syncer"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type staticSource struct {
	items []models.MenuItem
	err   error
}

func (s staticSource) FetchMenu(context.Context) ([]models.MenuItem, error) {
	return s.items, s.err
}

var apiMenu = []models.MenuItem{
	{ID: 1, Name: "Borscht", Category: "Soups", Price: 5.5, Description: "beet soup"},
	{ID: 2, Name: "Pelmeni", Category: "Mains", Price: 8},
	{ID: 3, Name: "Solyanka", Category: "Soups", Price: 6.25},
	{ID: 4, Name: "100% Juice", Category: "Drinks", Price: 3},
}

type testEnv struct {
	svc    *service.MenuService
	server *HTTPServer
	ts     *httptest.Server
}

func newTestEnv(t *testing.T, src staticSource, cfg config.APIConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "menu.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.NewMenuStore(db, events.NewEventBus(), &logger)
	sy := syncer.New(st, src, &logger)
	svc := service.NewMenuService(st, sy, repository.NewMemoryPreferenceRepository(), &logger)

	server := NewHTTPServer(cfg, svc, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{svc: svc, server: server, ts: ts}
}

func loadedEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, staticSource{items: apiMenu}, config.APIConfig{})
	res := env.svc.Load(context.Background(), nil)
	require.NoError(t, res.Err)
	return env
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decodeMenu(t *testing.T, body []byte) menuResponse {
	t.Helper()
	var m menuResponse
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, staticSource{}, config.APIConfig{})
	resp, body := get(t, env.ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestLoadingState(t *testing.T) {
	env := newTestEnv(t, staticSource{items: apiMenu}, config.APIConfig{})

	resp, body := get(t, env.ts.URL+"/api/v1/menu")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"state":"loading"}`, string(body))

	resp, _ = get(t, env.ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env.svc.Load(context.Background(), nil)

	resp, _ = get(t, env.ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMenu(t *testing.T) {
	env := loadedEnv(t)

	resp, body := get(t, env.ts.URL+"/api/v1/menu")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	m := decodeMenu(t, body)
	assert.Equal(t, models.SyncStateReady, m.State)
	require.Len(t, m.Items, 4)
	assert.Equal(t, "Borscht", m.Items[0].Name)
}

func TestSearch(t *testing.T) {
	env := loadedEnv(t)

	tests := []struct {
		query string
		ids   []int64
	}{
		{"?q=bor", []int64{1}},
		{"?q=BOR", []int64{1}},
		{"?category=Soups", []int64{1, 3}},
		{"?category=soups", []int64{}},
		{"?q=an&category=Soups", []int64{3}},
		{"?q=%25", []int64{4}},
		{"", []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := get(t, env.ts.URL+"/api/v1/menu/search"+tt.query)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			ids := []int64{}
			for _, it := range decodeMenu(t, body).Items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestItemByID(t *testing.T) {
	env := loadedEnv(t)

	resp, body := get(t, env.ts.URL+"/api/v1/menu/2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decodeMenu(t, body)
	require.Len(t, m.Items, 1)
	assert.Equal(t, "Pelmeni", m.Items[0].Name)

	resp, body = get(t, env.ts.URL+"/api/v1/menu/999")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, decodeMenu(t, body).Items)
	assert.Empty(t, decodeMenu(t, body).Items)
	assert.Contains(t, string(body), `"items":[]`)

	resp, _ = get(t, env.ts.URL+"/api/v1/menu/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCategories(t *testing.T) {
	env := loadedEnv(t)

	resp, body := get(t, env.ts.URL+"/api/v1/categories")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.ElementsMatch(t, []string{"Soups", "Mains", "Drinks"}, out.Categories)
}

func TestStatus_Failed(t *testing.T) {
	env := newTestEnv(t, staticSource{err: assert.AnError}, config.APIConfig{})
	env.svc.Load(context.Background(), nil)

	resp, body := get(t, env.ts.URL+"/api/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status models.SyncStatus
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, models.SyncStateFailed, status.State)
	assert.NotEmpty(t, status.Error)

	resp, body = get(t, env.ts.URL+"/api/v1/menu")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decodeMenu(t, body)
	assert.Equal(t, models.SyncStateFailed, m.State)
	assert.NotEmpty(t, m.Error)
	assert.Empty(t, m.Items)
}

func TestExport(t *testing.T) {
	env := loadedEnv(t)

	resp, body := get(t, env.ts.URL+"/api/v1/menu/export.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "menu.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Menu")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestPreferences(t *testing.T) {
	env := loadedEnv(t)
	url := env.ts.URL + "/api/v1/prefs/theme"

	resp, _ := get(t, url)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(`{"value":"dark"}`))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	putResp.Body.Close()
	assert.Equal(t, http.StatusOK, putResp.StatusCode)

	resp, body := get(t, url)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"key":"theme","value":"dark"}`, string(body))

	req, err = http.NewRequest(http.MethodPut, url, strings.NewReader(`{"nope":1}`))
	require.NoError(t, err)
	badResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)

	req, err = http.NewRequest(http.MethodDelete, url, http.NoBody)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, _ = get(t, url)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLastSyncPreferenceIsRecorded(t *testing.T) {
	env := loadedEnv(t)

	resp, body := get(t, env.ts.URL+"/api/v1/prefs/"+models.PrefLastSyncAt)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"key":"last_sync_at"`)
}

func TestRequestID(t *testing.T) {
	env := loadedEnv(t)

	resp, _ := get(t, env.ts.URL+"/healthz")
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/healthz", http.NoBody)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "abc-123", resp2.Header.Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	cfg := config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 2}}
	env := newTestEnv(t, staticSource{}, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := get(t, env.ts.URL+"/healthz")
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMethodNotAllowed(t *testing.T) {
	env := loadedEnv(t)
	resp, err := http.Post(env.ts.URL+"/api/v1/menu", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func readFrame(t *testing.T, r *bufio.Reader) []models.MenuItemRecord {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			var records []models.MenuItemRecord
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &records))
			return records
		}
	}
}

func TestWatchStream(t *testing.T) {
	env := newTestEnv(t, staticSource{items: apiMenu}, config.APIConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.ts.URL+"/api/v1/menu/watch?category=Soups", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Empty(t, readFrame(t, reader))

	go env.svc.Load(context.Background(), nil)

	// frames are latest-wins, so skip intermediate snapshots
	for {
		records := readFrame(t, reader)
		if len(records) == 2 {
			assert.Equal(t, int64(1), records[0].ID)
			assert.Equal(t, int64(3), records[1].ID)
			break
		}
	}
	<-env.svc.Ready()
}

func TestWatchStream_BadID(t *testing.T) {
	env := loadedEnv(t)
	resp, _ := get(t, env.ts.URL+"/api/v1/menu/watch?id=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServe_CancelEndsWatchStreams(t *testing.T) {
	env := loadedEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- env.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/menu/watch")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	assert.Len(t, readFrame(t, reader), 4)

	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	start := time.Now()
	require.NoError(t, env.server.Shutdown(shutdownCtx))
	assert.Less(t, time.Since(start), time.Second)

	_, err = io.ReadAll(reader)
	assert.NoError(t, err)
	assert.NoError(t, <-served)
}
