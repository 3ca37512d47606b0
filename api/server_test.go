package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/search"
	"github.com/poiesic/permitsearch/storage"
	"github.com/poiesic/permitsearch/storage/badger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fixturePermits() []*core.Permit {
	return []*core.Permit{
		{ID: 1, Applicant: "MOMO INNOVATION LLC", Address: "101 CALIFORNIA ST", Status: core.StatusApproved,
			Latitude: core.Float64(37.792949), Longitude: core.Float64(-122.398099)},
		{ID: 2, Applicant: "The Geez Freeze", Address: "3750 18TH ST", Status: core.StatusApproved,
			Latitude: core.Float64(37.762019), Longitude: core.Float64(-122.427306)},
		{ID: 3, Applicant: "Other Vendor", Address: "1 MARKET ST", Status: core.StatusRequested,
			Latitude: core.Float64(37.7946), Longitude: core.Float64(-122.3940)},
		{ID: 4, Applicant: "NoCoords Vendor", Address: "123 NOWHERE", Status: core.StatusApproved},
	}
}

type testEnv struct {
	server  *Server
	repo    storage.PermitRepository
	backend *badger.Backend
}

func setupServer(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	_, err = repo.UpsertPermits(context.Background(), fixturePermits()...)
	require.NoError(t, err)

	searcher, err := search.NewSearcher(repo)
	require.NoError(t, err)

	opts = append([]Option{WithCounter(repo)}, opts...)
	server, err := NewServer(searcher, opts...)
	require.NoError(t, err)

	return &testEnv{server: server, repo: repo, backend: backend}
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResults(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var results []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results), rec.Body.String())
	return results
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func TestNewServer(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()
	searcher, err := search.NewSearcher(repo)
	require.NoError(t, err)

	t.Run("nil searcher", func(t *testing.T) {
		_, err := NewServer(nil)
		assert.Error(t, err)
	})

	t.Run("invalid limits", func(t *testing.T) {
		_, err := NewServer(searcher, WithLimits(0, 10))
		assert.Error(t, err)
		_, err = NewServer(searcher, WithLimits(10, 5))
		assert.Error(t, err)
	})

	t.Run("invalid rate limit", func(t *testing.T) {
		_, err := NewServer(searcher, WithRateLimit(-1, 1))
		assert.Error(t, err)
		_, err = NewServer(searcher, WithRateLimit(5, 0))
		assert.Error(t, err)
	})

	t.Run("nil metrics", func(t *testing.T) {
		_, err := NewServer(searcher, WithMetrics(nil))
		assert.Error(t, err)
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		server, err := NewServer(searcher, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, server.logger)
	})
}

func TestSearch_DefaultsToApproved(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?applicantName=vendor")
	require.Equal(t, http.StatusOK, rec.Code)

	results := decodeResults(t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, "NoCoords Vendor", results[0]["applicant"])
	assert.Equal(t, core.StatusApproved, results[0]["status"])
	assert.NotContains(t, results[0], "distance")
}

func TestSearch_EmptyStatusDisablesFilter(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?applicantName=vendor&status=")
	require.Equal(t, http.StatusOK, rec.Code)

	results := decodeResults(t, rec)
	require.Len(t, results, 2)
	statuses := []any{results[0]["status"], results[1]["status"]}
	assert.ElementsMatch(t, []any{core.StatusRequested, core.StatusApproved}, statuses)
}

func TestSearch_ExplicitStatus(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?status=REQUESTED")
	require.Equal(t, http.StatusOK, rec.Code)

	results := decodeResults(t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, "Other Vendor", results[0]["applicant"])
}

func TestSearch_StreetName(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?streetName=18th")
	require.Equal(t, http.StatusOK, rec.Code)

	results := decodeResults(t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, "3750 18TH ST", results[0]["address"])
}

func TestSearch_NoMatchesIsEmptyArray(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?applicantName=zzz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSearch_Limit(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResults(t, rec), 1)

	rec = env.get(t, "/api/search")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResults(t, rec), 3)
}

func TestSearch_LimitClampedToMax(t *testing.T) {
	env := setupServer(t, WithLimits(1, 2))

	rec := env.get(t, "/api/search?limit=100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResults(t, rec), 2)

	rec = env.get(t, "/api/search")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResults(t, rec), 1)
}

func TestSearch_Proximity(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?latitude=37.7955&longitude=-122.3937&status=APPROVED")
	require.Equal(t, http.StatusOK, rec.Code)

	results := decodeResults(t, rec)
	require.Len(t, results, 2)
	assert.Equal(t, "101 CALIFORNIA ST", results[0]["address"])
	assert.Equal(t, "3750 18TH ST", results[1]["address"])

	for _, r := range results {
		require.Contains(t, r, "distance")
		assert.IsType(t, float64(0), r["distance"])
	}
	assert.InDelta(t, 0.2979, results[0]["distance"], 0.001)
	assert.Less(t, results[0]["distance"].(float64), results[1]["distance"].(float64))
}

func TestSearch_ProximityWithoutStatusIncludesOtherStatuses(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search?latitude=37.7955&longitude=-122.3937&status=")
	require.Equal(t, http.StatusOK, rec.Code)

	results := decodeResults(t, rec)
	require.Len(t, results, 3)
	assert.Equal(t, "Other Vendor", results[0]["applicant"])
}

func TestSearch_SingleCoordinateIsPlainSearch(t *testing.T) {
	env := setupServer(t)

	for _, target := range []string{
		"/api/search?latitude=37.7955",
		"/api/search?longitude=-122.3937",
	} {
		t.Run(target, func(t *testing.T) {
			rec := env.get(t, target)
			require.Equal(t, http.StatusOK, rec.Code)

			results := decodeResults(t, rec)
			require.Len(t, results, 3)
			for _, r := range results {
				assert.NotContains(t, r, "distance")
			}
		})
	}
}

func TestSearch_InvalidParameters(t *testing.T) {
	env := setupServer(t)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "non-numeric limit", target: "/api/search?limit=abc", want: "limit"},
		{name: "zero limit", target: "/api/search?limit=0", want: "limit"},
		{name: "negative limit", target: "/api/search?limit=-3", want: "limit"},
		{name: "non-numeric latitude", target: "/api/search?latitude=north&longitude=-122.39", want: "latitude"},
		{name: "latitude out of range", target: "/api/search?latitude=91&longitude=0", want: "latitude"},
		{name: "longitude out of range", target: "/api/search?latitude=0&longitude=-181", want: "longitude"},
		{name: "NaN longitude", target: "/api/search?latitude=0&longitude=NaN", want: "longitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(t, tt.target)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec), tt.want)
		})
	}
}

func TestSearch_StoreFailure(t *testing.T) {
	env := setupServer(t)
	require.NoError(t, env.backend.Close())

	rec := env.get(t, "/api/search")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database query failed", decodeError(t, rec))
}

func TestOpenAPIDocument(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search/openapi.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths      map[string]any `json:"paths"`
		Components struct {
			Schemas map[string]any `json:"schemas"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.0", doc.OpenAPI)
	assert.Equal(t, "Food Truck Search API", doc.Info.Title)
	assert.Contains(t, doc.Paths, "/")
	assert.Contains(t, doc.Components.Schemas, "Permit")
	assert.Contains(t, doc.Components.Schemas, "PermitWithDistance")
}

func TestDocsPage(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/api/search/docs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `id="swagger-ui"`)
	assert.Contains(t, rec.Body.String(), "/api/search/openapi.json")
}

func TestHealth(t *testing.T) {
	t.Run("reports permit count", func(t *testing.T) {
		env := setupServer(t)

		rec := env.get(t, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, 4, resp.Permits)
	})

	t.Run("unavailable store", func(t *testing.T) {
		env := setupServer(t, WithCounter(failingCounter{}))

		rec := env.get(t, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

type failingCounter struct{}

func (failingCounter) CountPermits(context.Context) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics()
	env := setupServer(t, WithMetrics(metrics))

	env.get(t, "/api/search")
	env.get(t, "/api/search?applicantName=zzz")
	env.get(t, "/api/search?latitude=37.7955&longitude=-122.3937")
	env.get(t, "/api/search?limit=abc")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.searchTotal.WithLabelValues("plain", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.searchTotal.WithLabelValues("plain", "empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.searchTotal.WithLabelValues("proximity", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/api/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/api/search", "400")))

	rec := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "permitsearch_searches_total")
	assert.Contains(t, rec.Body.String(), "permitsearch_http_request_duration_seconds")
}

func TestMetrics_InvalidProximitySearch(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()
	searcher, err := search.NewSearcher(repo)
	require.NoError(t, err)

	metrics := NewMetrics()
	criteria := core.Criteria{Limit: -1}.WithOrigin(core.Float64(37.7955), core.Float64(-122.3937))
	_, err = searcher.SearchWithMonitor(context.Background(), criteria, metrics.monitor())
	require.ErrorIs(t, err, core.ErrInvalidCriteria)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.searchTotal.WithLabelValues("proximity", "invalid")))
	assert.Zero(t, testutil.ToFloat64(metrics.searchTotal.WithLabelValues("plain", "invalid")))
}

func TestCORS(t *testing.T) {
	env := setupServer(t, WithCORSOrigin("https://trucks.example.com"))

	rec := env.get(t, "/api/search")
	assert.Equal(t, "https://trucks.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	pre := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
	assert.Contains(t, pre.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestRateLimit(t *testing.T) {
	env := setupServer(t, WithRateLimit(0.001, 2))

	for range 2 {
		rec := env.get(t, "/api/search")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.get(t, "/api/search")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decodeError(t, rec))

	// Only the search group is limited.
	assert.Equal(t, http.StatusOK, env.get(t, "/health").Code)
}

func TestClientLimiter_SweepsIdleClients(t *testing.T) {
	cl := newClientLimiter(1, 1)
	now := time.Now()
	cl.now = func() time.Time { return now }
	cl.lastSweep = now

	first := cl.get("10.0.0.1")
	cl.get("10.0.0.2")
	require.Len(t, cl.clients, 2)

	now = now.Add(clientIdleTTL / 2)
	assert.Same(t, first, cl.get("10.0.0.1"), "active client keeps its bucket")

	now = now.Add(clientIdleTTL)
	cl.get("10.0.0.3")
	assert.Len(t, cl.clients, 1)
	assert.Contains(t, cl.clients, "10.0.0.3")
}

func TestRequestID(t *testing.T) {
	env := setupServer(t)

	rec := env.get(t, "/health")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	echoed := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(echoed, req)
	assert.Equal(t, "abc-123", echoed.Header().Get(requestIDHeader))
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	env := setupServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- env.server.ListenAndServe(ctx, "127.0.0.1:0")
	}()
	cancel()

	assert.NoError(t, <-done)
}
