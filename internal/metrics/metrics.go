// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// sync runs, similarity queries and catalog contents.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leca/scene-archive/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scene_archive"

// Metrics holds all application metrics and the registry they live in.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Sync metrics
	SyncRunsTotal  *prometheus.CounterVec
	SyncItemsTotal *prometheus.CounterVec

	// Similarity metrics
	SimilarQueriesTotal *prometheus.CounterVec
	SimilarMatches      prometheus.Histogram
}

// New creates a Metrics instance backed by its own registry, with the Go
// runtime and process collectors installed.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of request durations by method and route",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),

		SyncRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Total reconcile calls by outcome and mode",
			},
			[]string{"status", "mode"},
		),
		SyncItemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_items_total",
				Help:      "Sync counters accumulated over committed reconcile calls",
			},
			[]string{"counter"},
		),

		SimilarQueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "similar_queries_total",
				Help:      "Total similarity queries by query kind and status",
			},
			[]string{"kind", "status"},
		),
		SimilarMatches: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "similar_matches",
				Help:      "Number of matches returned per similarity query",
				Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 500, 1000},
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records request counts and durations keyed by chi route pattern
// so scene IDs do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSync records the outcome of one reconcile call. Counters of dry
// runs and failed runs are not added to sync_items_total since nothing was
// committed.
func (m *Metrics) ObserveSync(dryRun bool, stats model.SyncStats, err error) {
	if m == nil {
		return
	}
	mode := "apply"
	if dryRun {
		mode = "dry_run"
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.SyncRunsTotal.WithLabelValues(status, mode).Inc()
	if err != nil || dryRun {
		return
	}
	m.SyncItemsTotal.WithLabelValues("scenes_synced").Add(float64(stats.ScenesSynced))
	m.SyncItemsTotal.WithLabelValues("versions_marked_live").Add(float64(stats.VersionsMarkedLive))
	m.SyncItemsTotal.WithLabelValues("skipped").Add(float64(stats.Skipped))
	m.SyncItemsTotal.WithLabelValues("errors").Add(float64(stats.Errors))
}

// ObserveSimilar records one similarity query. kind is "scene" or "hash".
func (m *Metrics) ObserveSimilar(kind string, matches int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SimilarQueriesTotal.WithLabelValues(kind, "error").Inc()
		return
	}
	m.SimilarQueriesTotal.WithLabelValues(kind, "ok").Inc()
	m.SimilarMatches.Observe(float64(matches))
}

// StatsSource reports catalog totals.
type StatsSource interface {
	Stats(ctx context.Context) (*model.CatalogStats, error)
}

// RegisterCatalog exports catalog totals as gauges read from src on every
// scrape.
func (m *Metrics) RegisterCatalog(src StatsSource) {
	m.Registry.MustRegister(newCatalogCollector(src))
}

const catalogScrapeTimeout = 2 * time.Second

type catalogCollector struct {
	src      StatsSource
	scenes   *prometheus.Desc
	versions *prometheus.Desc
	up       *prometheus.Desc
}

func newCatalogCollector(src StatsSource) *catalogCollector {
	return &catalogCollector{
		src: src,
		scenes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "catalog", "scenes"),
			"Number of scenes in the catalog",
			nil, nil,
		),
		versions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "catalog", "versions"),
			"Number of image versions by kind",
			[]string{"kind"}, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "catalog", "up"),
			"Whether the last catalog scrape succeeded (1=ok, 0=down)",
			nil, nil,
		),
	}
}

func (c *catalogCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.scenes
	ch <- c.versions
	ch <- c.up
}

func (c *catalogCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), catalogScrapeTimeout)
	defer cancel()

	stats, err := c.src.Stats(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.scenes, prometheus.GaugeValue, float64(stats.TotalScenes))
	for kind, n := range map[string]int{
		"all":            stats.TotalVersions,
		"live":           stats.LiveVersions,
		"hashed":         stats.VersionsWithHash,
		"current":        stats.CurrentVersions,
		"current_hashed": stats.CurrentVersionsWithHash,
	} {
		ch <- prometheus.MustNewConstMetric(c.versions, prometheus.GaugeValue, float64(n), kind)
	}
}
