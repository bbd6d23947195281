package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/leca/scene-archive/internal/api"
	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/search"
	"github.com/leca/scene-archive/internal/similarity"
)

const defaultSimilarLimit = 20

type similarMatch struct {
	model.SimilarMatch
	ImageURL string `json:"image_url"`
}

type similarResponse struct {
	QuerySceneID string         `json:"query_scene_id,omitempty"`
	QueryHash    string         `json:"query_hash"`
	Threshold    int            `json:"threshold"`
	Results      []similarMatch `json:"results"`
	Total        int            `json:"total"`
}

// FindSimilar handles GET /api/public/similar?scene_id=... or ?hash=...
// The origin scene is never part of its own results.
func (h *Handler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sceneID, hash := q.Get("scene_id"), q.Get("hash")
	if (sceneID == "") == (hash == "") {
		api.BadRequest(w, "exactly one of scene_id or hash is required")
		return
	}

	threshold, ok := intParam(r, "threshold", h.Config.Similarity.Threshold)
	if !ok || threshold > similarity.MaxThreshold {
		api.BadRequest(w, fmt.Sprintf("threshold must be an integer between 0 and %d", similarity.MaxThreshold))
		return
	}
	limit, ok := intParam(r, "limit", defaultSimilarLimit)
	if !ok {
		api.BadRequest(w, "limit must be a non-negative integer")
		return
	}
	if limit == 0 || limit > search.MaxLimit {
		limit = search.MaxLimit
	}

	var (
		matches []model.SimilarMatch
		err     error
	)
	kind := "hash"
	if sceneID != "" {
		kind = "scene"
		hash, matches, err = h.Similarity.FindSimilarToScene(r.Context(), sceneID, threshold, limit)
	} else {
		matches, err = h.Similarity.FindSimilar(r.Context(), hash, threshold, limit)
	}
	h.Metrics.ObserveSimilar(kind, len(matches), err)
	if err != nil {
		if errors.Is(err, similarity.ErrInvalidHash) {
			api.BadRequest(w, "hash must be a hex string")
			return
		}
		api.WriteError(w, err)
		return
	}

	resp := similarResponse{
		QuerySceneID: sceneID,
		QueryHash:    hash,
		Threshold:    threshold,
		Results:      make([]similarMatch, 0, len(matches)),
		Total:        len(matches),
	}
	for _, m := range matches {
		resp.Results = append(resp.Results, similarMatch{SimilarMatch: m, ImageURL: h.Store.URLFor(m.StorageKey)})
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
