package handler

import (
	"errors"
	"net/http"

	"github.com/leca/scene-archive/internal/api"
	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/reconcile"
)

const (
	maxSyncBytes   = 64 << 20
	maxUploadBytes = 256 << 20
)

type syncProgress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type syncResponse struct {
	Message     string          `json:"message"`
	SyncID      string          `json:"sync_id,omitempty"`
	Stats       model.SyncStats `json:"stats"`
	DryRun      bool            `json:"dry_run"`
	TotalScenes int             `json:"total_scenes"`
	Progress    syncProgress    `json:"progress"`
}

// syncFailure is the error envelope plus the counters reached before abort.
type syncFailure struct {
	api.Response
	Stats model.SyncStats `json:"stats"`
}

// SyncData handles POST /api/admin/sync/data. dry_run may be given in the
// body or as a query parameter.
func (h *Handler) SyncData(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSyncBytes)
	payload, err := reconcile.DecodePayload(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.TooLarge(w, "sync payload exceeds the size limit")
			return
		}
		if model.IsValidation(err) {
			api.BadRequest(w, "invalid sync payload: "+err.Error())
			return
		}
		api.WriteError(w, err)
		return
	}
	dryRun := payload.DryRun || r.URL.Query().Get("dry_run") == "true"

	res, err := h.Reconciler.Reconcile(r.Context(), payload.Scenes, dryRun)
	h.Metrics.ObserveSync(dryRun, res.Stats, err)
	if err != nil {
		status, code := http.StatusInternalServerError, 9500
		if errors.Is(err, model.ErrDependencyUnavailable) {
			status, code = http.StatusServiceUnavailable, 9503
		}
		api.WriteJSON(w, status, syncFailure{
			Response: api.ErrorResponse(code, "sync aborted; no changes were applied"),
			Stats:    res.Stats,
		})
		return
	}

	total := len(payload.Scenes)
	pct := 100.0
	if total > 0 {
		pct = float64(res.Stats.ScenesSynced) / float64(total) * 100
	}
	msg := "Sync completed"
	switch {
	case dryRun:
		msg = "Dry run completed; no changes were applied"
	case res.Stats.Partial():
		msg = "Sync completed with skipped entries"
	}

	api.WriteJSON(w, http.StatusOK, syncResponse{
		Message:     msg,
		SyncID:      res.SyncID,
		Stats:       res.Stats,
		DryRun:      dryRun,
		TotalScenes: total,
		Progress: syncProgress{
			Completed:  res.Stats.ScenesSynced,
			Total:      total,
			Percentage: pct,
		},
	})
}

// SyncStatus handles GET /api/admin/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.DB.Stats(r.Context())
	if err != nil {
		api.WriteError(w, err)
		return
	}

	var last *model.SyncRun
	run, err := h.DB.LatestSyncRun(r.Context())
	switch {
	case err == nil:
		last = run
	case !errors.Is(err, model.ErrNotFound):
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"last_sync": last,
		"catalog":   stats,
	})
}
