package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leca/scene-archive/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	stats *model.CatalogStats
	err   error
}

func (f *fakeStats) Stats(context.Context) (*model.CatalogStats, error) {
	return f.stats, f.err
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/scenes/{scene_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/scenes/a", "/scenes/b", "/ok", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/scenes/{scene_id}", "418")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/ok", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestObserveSync(t *testing.T) {
	m := New()
	stats := model.SyncStats{ScenesSynced: 3, VersionsMarkedLive: 2, Skipped: 1, Errors: 1}

	m.ObserveSync(false, stats, nil)
	m.ObserveSync(true, stats, nil)
	m.ObserveSync(false, stats, errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("success", "apply")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("success", "dry_run")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("failed", "apply")))

	// Only the committed run contributes item counters.
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SyncItemsTotal.WithLabelValues("scenes_synced")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SyncItemsTotal.WithLabelValues("versions_marked_live")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncItemsTotal.WithLabelValues("errors")))
}

func TestObserveSimilar(t *testing.T) {
	m := New()
	m.ObserveSimilar("scene", 4, nil)
	m.ObserveSimilar("hash", 0, nil)
	m.ObserveSimilar("hash", 0, errors.New("bad hash"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SimilarQueriesTotal.WithLabelValues("scene", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SimilarQueriesTotal.WithLabelValues("hash", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SimilarQueriesTotal.WithLabelValues("hash", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SimilarMatches))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSync(false, model.SyncStats{}, nil)
	m.ObserveSimilar("hash", 1, nil)

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestCatalogCollector(t *testing.T) {
	src := &fakeStats{stats: &model.CatalogStats{
		TotalScenes:             4,
		TotalVersions:           5,
		LiveVersions:            3,
		VersionsWithHash:        5,
		CurrentVersions:         3,
		CurrentVersionsWithHash: 3,
	}}
	c := newCatalogCollector(src)

	assert.Equal(t, 7, testutil.CollectAndCount(c))

	expected := `
# HELP scene_archive_catalog_scenes Number of scenes in the catalog
# TYPE scene_archive_catalog_scenes gauge
scene_archive_catalog_scenes 4
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "scene_archive_catalog_scenes"))

	src.err = errors.New("database is locked")
	assert.Equal(t, 1, testutil.CollectAndCount(c))
	assert.Equal(t, 0, testutil.CollectAndCount(c, "scene_archive_catalog_scenes"))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.RegisterCatalog(&fakeStats{stats: &model.CatalogStats{TotalScenes: 2}})
	m.ObserveSync(false, model.SyncStats{ScenesSynced: 2}, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "scene_archive_catalog_scenes 2")
	assert.Contains(t, string(body), `scene_archive_sync_runs_total{mode="apply",status="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
