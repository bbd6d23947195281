package handler

import (
	"net/http"

	"github.com/leca/scene-archive/internal/api"
	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/search"
)

const defaultSuggestLimit = 10

// Search handles GET /api/public/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, ok := intParam(r, "limit", search.DefaultLimit)
	if !ok {
		api.BadRequest(w, "limit must be a non-negative integer")
		return
	}
	offset, ok := intParam(r, "offset", 0)
	if !ok {
		api.BadRequest(w, "offset must be a non-negative integer")
		return
	}

	filters := model.SearchFilters{
		RollNumber: q.Get("roll_number"),
		RollDate:   q.Get("roll_date"),
		BatchName:  q.Get("batch_name"),
		DateSource: q.Get("date_source"),
	}

	res, err := h.DB.Search(r.Context(), q.Get("q"), filters, limit, offset)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

// Suggest handles GET /api/public/search/suggestions.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", defaultSuggestLimit)
	if !ok {
		api.BadRequest(w, "limit must be a non-negative integer")
		return
	}
	limit = min(limit, search.MaxLimit)

	suggestions, err := h.DB.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}
