package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"nexus-ats/internal/blob"
	"nexus-ats/internal/metrics"
	"nexus-ats/internal/service"
	"nexus-ats/internal/storage/memstore"
)

type testEnv struct {
	repo   *memstore.Store
	store  *blob.FileStore
	router http.Handler
}

func newTestEnv(t *testing.T, opts Options, docCfg service.DocumentConfig, mw MiddlewareConfig) *testEnv {
	t.Helper()
	repo := memstore.New()
	store, err := blob.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	log := zerolog.Nop()
	candidates := service.NewCandidateService(repo, log)
	svc := Services{
		Candidates:   candidates,
		Pipeline:     service.NewPipelineService(repo, log),
		Documents:    service.NewDocumentService(repo, store, nil, docCfg, log),
		Search:       service.NewSearchService(repo, log),
		Applications: service.NewApplicationService(repo, candidates, 3, log),
	}
	a := NewAPI(svc, repo, opts)
	return &testEnv{repo: repo, store: store, router: NewRouter(a, mw)}
}

func defaultEnv(t *testing.T) *testEnv {
	return newTestEnv(t, Options{}, service.DocumentConfig{}, MiddlewareConfig{CORSAllowedOrigins: []string{"*"}})
}

// envelope mirrors Response with the data left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"fields"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec, decodeEnvelope(t, rec)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		return env
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\n%s", err, rec.Body.String())
	}
	return env
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	if env.Success || env.Error == nil || env.Error.Code != code {
		t.Fatalf("error = %+v, want %s", env.Error, code)
	}
}

func TestHealth(t *testing.T) {
	env := defaultEnv(t)

	rec, body := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !body.Success {
		t.Fatalf("healthy: %d %s", rec.Code, rec.Body.String())
	}

	env.repo.Err = errors.New("connection refused")
	rec, body = env.do(t, http.MethodGet, "/health", nil)
	expectError(t, rec, body, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE")
}

func TestRequestID(t *testing.T) {
	env := defaultEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/health", nil, "X-Request-ID", "req-123")
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("echoed request id = %q", got)
	}
	rec, _ = env.do(t, http.MethodGet, "/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("a request id should be generated")
	}
}

func TestUnknownRoute(t *testing.T) {
	env := defaultEnv(t)
	rec, body := env.do(t, http.MethodGet, "/api/nope", nil)
	expectError(t, rec, body, http.StatusNotFound, "ROUTE_NOT_FOUND")
}

func TestInstrument_CountsByRoutePattern(t *testing.T) {
	env := defaultEnv(t)
	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/candidates/{id}", "400")
	before := testutil.ToFloat64(counter)

	env.do(t, http.MethodGet, "/api/candidates/not-an-id", nil)
	env.do(t, http.MethodGet, "/api/candidates/also-bad", nil)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("counted %v requests under the route pattern, want 2", got)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{}, service.DocumentConfig{}, MiddlewareConfig{
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
	})

	rec, _ := env.do(t, http.MethodGet, "/api/candidates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	rec, body := env.do(t, http.MethodGet, "/api/candidates", nil)
	expectError(t, rec, body, http.StatusTooManyRequests, "RATE_LIMITED")

	// /health is outside the limited group.
	rec, _ = env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health was rate limited: %d", rec.Code)
	}
}

func TestMalformedJSON(t *testing.T) {
	env := defaultEnv(t)
	rec, body := env.do(t, http.MethodPost, "/api/candidates", "{not json")
	expectError(t, rec, body, http.StatusBadRequest, "INVALID_JSON")

	rec, body = env.do(t, http.MethodPost, "/api/search", "")
	expectError(t, rec, body, http.StatusBadRequest, "INVALID_JSON")
}
