package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leca/scene-archive/internal/api"
	"github.com/leca/scene-archive/internal/config"
	"github.com/leca/scene-archive/internal/database"
	"github.com/leca/scene-archive/internal/handler"
	"github.com/leca/scene-archive/internal/metrics"
	"github.com/leca/scene-archive/internal/reconcile"
	"github.com/leca/scene-archive/internal/similarity"
	"github.com/leca/scene-archive/internal/storage"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	DB      database.Database
	Store   storage.Backend
	Config  *config.Config
	Metrics *metrics.Metrics
	Router  chi.Router
}

// New creates a new Server with a fully configured chi router.
func New(db database.Database, store storage.Backend, cfg *config.Config) *Server {
	s := &Server{DB: db, Store: store, Config: cfg, Metrics: metrics.New()}
	s.Metrics.RegisterCatalog(db)

	h := &handler.Handler{
		DB:    db,
		Store: store,
		Similarity: similarity.NewEngine(db,
			similarity.WithMaxCandidates(cfg.Similarity.MaxCandidates),
			similarity.WithTimeout(cfg.Similarity.Timeout),
		),
		Reconciler: reconcile.New(db),
		Metrics:    s.Metrics,
		Config:     cfg,
	}

	r := chi.NewRouter()

	// CORS runs before other middleware to answer preflight OPTIONS.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.Metrics.Middleware)

	// Health check and metrics (no auth required).
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	// Public read API.
	r.Route("/api/public", func(r chi.Router) {
		r.Get("/scenes", h.ListScenes)
		r.Get("/scenes/{scene_id}", h.GetScene)
		r.Get("/scenes/{scene_id}/image", h.GetSceneImage)

		r.Get("/search", h.Search)
		r.Get("/search/suggestions", h.Suggest)

		r.Get("/similar", h.FindSimilar)
		r.Get("/roll/{roll_number}", h.GetRoll)
		r.Get("/stats", h.GetStats)
	})

	// Local storage objects, served by key.
	r.Get(storage.LocalURLPrefix+"*", h.ServeStorage)

	// Admin API.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(api.AuthMiddleware(cfg.AdminToken))

		r.Post("/sync/data", h.SyncData)
		r.Get("/sync/status", h.SyncStatus)
		r.Get("/scenes/{scene_id}/versions", h.ListVersions)
		r.Put("/versions/{version_id}/storage-key", h.SetStorageKey)
		r.Put("/storage/*", h.PutStorageObject)
	})

	s.Router = r
	return s
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("Health: failed to encode response", "error", err)
	}
}
