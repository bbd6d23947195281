package handler

import (
	"net/http"
	"strconv"

	"github.com/leca/scene-archive/internal/config"
	"github.com/leca/scene-archive/internal/database"
	"github.com/leca/scene-archive/internal/metrics"
	"github.com/leca/scene-archive/internal/reconcile"
	"github.com/leca/scene-archive/internal/similarity"
	"github.com/leca/scene-archive/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	DB         database.Database
	Store      storage.Backend
	Similarity *similarity.Engine
	Reconciler *reconcile.Reconciler
	Metrics    *metrics.Metrics
	Config     *config.Config
}

// intParam reads a non-negative integer query parameter. ok is false when
// the parameter is present but malformed.
func intParam(r *http.Request, name string, def int) (n int, ok bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// imageURL returns the public URL of a live version's bytes.
func (h *Handler) imageURL(key *string) *string {
	if key == nil {
		return nil
	}
	u := h.Store.URLFor(*key)
	return &u
}
