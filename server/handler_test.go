package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wyfcoding/wordmask/config"
	"github.com/wyfcoding/wordmask/limiter"
	"github.com/wyfcoding/wordmask/metrics"
	"github.com/wyfcoding/wordmask/service"
	"github.com/wyfcoding/wordmask/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
	Detail string          `json:"detail"`
}

func testConfig(dict string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Name: "wordmask-test",
			HTTP: config.HTTPConfig{Addr: "127.0.0.1:0", WriteTimeout: 5 * time.Second, MaxBodyBytes: 1 << 10},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Filter: config.FilterConfig{
			Algorithm:        "aho-corasick",
			Dictionaries:     []string{dict},
			Mask:             "*",
			MaxTextLength:    256,
			MaxBatchSize:     3,
			BatchConcurrency: 2,
		},
	}
}

func newTestRouter(t *testing.T, lim limiter.Limiter) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	dict := filepath.Join(t.TempDir(), "key.txt")
	require.NoError(t, os.WriteFile(dict, []byte("he\nshe\nhers\n敏感\n"), 0o600))

	cfg := testConfig(dict)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := metrics.NewMetrics("server-test")

	d, err := service.NewDetector(context.Background(), cfg.Filter,
		service.WithLogger(logger),
		service.WithMetrics(metrics.NewDetectorMetrics(m)),
	)
	require.NoError(t, err)

	return NewRouter(RouterDeps{Config: cfg, Detector: d, Metrics: m, Limiter: lim, Logger: logger}), m
}

func do(t *testing.T, engine *gin.Engine, method, path, body string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestMaskEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t, nil)

	code, env := do(t, engine, http.MethodPost, "/v1/mask", `{"text":"ahershe"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)

	var res service.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "a******", res.Text)
	assert.True(t, res.Hit)

	code, env = do(t, engine, http.MethodPost, "/v1/mask", `{"text":""}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Empty(t, res.Text)
	assert.False(t, res.Hit)

	code, _ = do(t, engine, http.MethodPost, "/v1/mask", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, engine, http.MethodPost, "/v1/mask", `{"text":"`+strings.Repeat("a", 257)+`"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, xerrors.ErrTextTooLong.Code, env.Code)
}

func TestMaskBatchEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t, nil)

	code, env := do(t, engine, http.MethodPost, "/v1/mask/batch", `{"texts":["she","ok","敏感词"]}`)
	require.Equal(t, http.StatusOK, code)

	var results []service.Result
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 3)
	assert.Equal(t, "***", results[0].Text)
	assert.Equal(t, "ok", results[1].Text)
	assert.Equal(t, "**词", results[2].Text)

	code, env = do(t, engine, http.MethodPost, "/v1/mask/batch", `{"texts":["a","b","c","d"]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, xerrors.ErrBatchTooLarge.Code, env.Code)

	code, _ = do(t, engine, http.MethodPost, "/v1/mask/batch", `{"texts":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDetectEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t, nil)

	code, env := do(t, engine, http.MethodPost, "/v1/detect", `{"text":"ushers"}`)
	require.Equal(t, http.StatusOK, code)

	var det service.Detection
	require.NoError(t, json.Unmarshal(env.Data, &det))
	assert.True(t, det.Hit)
	require.Len(t, det.Spans, 1)
	assert.Equal(t, 1, det.Spans[0].Begin)
	assert.Equal(t, 6, det.Spans[0].End)
	assert.NotEmpty(t, det.Hits)
}

func TestReloadAndHealth(t *testing.T) {
	engine, _ := newTestRouter(t, nil)

	code, env := do(t, engine, http.MethodPost, "/v1/reload", ``)
	require.Equal(t, http.StatusOK, code)

	var stats service.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, uint64(2), stats.Version)
	assert.Equal(t, 4, stats.Words)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t, nil)
	do(t, engine, http.MethodPost, "/v1/mask", `{"text":"she"}`)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_server_requests_total{method="POST",path="/v1/mask",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "wordmask_scans_total")
}

func TestBodyTooLarge(t *testing.T) {
	engine, _ := newTestRouter(t, nil)

	code, _ := do(t, engine, http.MethodPost, "/v1/mask", `{"text":"`+strings.Repeat("a", 2048)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func TestRateLimited(t *testing.T) {
	engine, _ := newTestRouter(t, limiter.NewLocalLimiter(rate.Every(time.Hour), 1))

	code, _ := do(t, engine, http.MethodPost, "/v1/mask", `{"text":"x"}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, engine, http.MethodPost, "/v1/mask", `{"text":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)

	// 健康检查不受限流影响
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGinServerGracefulShutdown(t *testing.T) {
	engine, _ := newTestRouter(t, nil)
	srv := NewGinServer(engine, config.HTTPConfig{ShutdownTimeout: time.Second}, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
