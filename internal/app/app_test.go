package app

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, "*/30 * * * *", cfg.ReorderScanCron)
	assert.Equal(t, "127.0.0.1:2525", cfg.SMTPAddr())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, time.UTC, cfg.StoreLocation())
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("STORE_TIMEZONE", "Mars/Olympus_Mons")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "store timezone")
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"})
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"service":"freshmart"`)
	assert.Contains(t, buf.String(), `"env":"production"`)
}

type stackFixture struct {
	router  http.Handler
	cookies []*http.Cookie
}

func newStack(t *testing.T, limit int) *stackFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	csrf := shared.NewCSRFManager("csrf-secret")
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         NewLogger(nil),
		Config:         &Config{RateLimitPerMin: limit},
		SessionManager: shared.NewSessionManager(client, "freshmart_session", time.Hour, false),
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(csrf.EnsureToken(shared.SessionFromContext(r.Context()))))
	})
	r.Post("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &stackFixture{router: r}
}

func (f *stackFixture) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(shared.CSRFHeader, token)
	}
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		f.cookies = cookies
	}
	return rec
}

func TestMiddlewareCSRF(t *testing.T) {
	f := newStack(t, 100)

	rec := f.do(http.MethodGet, "/token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Body.String()
	require.NotEmpty(t, token)
	require.NotEmpty(t, f.cookies)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = f.do(http.MethodPost, "/echo", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid CSRF token"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/echo", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareRateLimit(t *testing.T) {
	f := newStack(t, 2)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/token", "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/token", "").Code)
	rec := f.do(http.MethodGet, "/token", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouterLogsEachRequestOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var chiOut bytes.Buffer
	prev := chimw.DefaultLogger
	chimw.DefaultLogger = chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: log.New(&chiOut, "", 0), NoColor: true})
	t.Cleanup(func() { chimw.DefaultLogger = prev })

	var buf bytes.Buffer
	router := NewRouter(RouterParams{
		Logger:         newLogger(&buf, &Config{LogFormat: "json"}),
		Config:         &Config{},
		SessionManager: shared.NewSessionManager(client, "freshmart_session", time.Hour, false),
		CSRFManager:    shared.NewCSRFManager("csrf-secret"),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Empty(t, chiOut.String())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var access []map[string]any
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "http request" {
			access = append(access, entry)
		}
	}
	require.Len(t, access, 1)
	assert.Equal(t, "/api/status", access[0]["path"])
	assert.Equal(t, float64(http.StatusOK), access[0]["status"])
	assert.NotEmpty(t, access[0]["request_id"])
}

func TestStaticCacheHandler(t *testing.T) {
	h := staticCacheHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestInTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	assert.True(t, InTestMode())
	t.Setenv(TestModeEnv, "false")
	assert.False(t, InTestMode())
	t.Setenv(TestModeEnv, "")
	assert.False(t, InTestMode())
}
