package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leca/scene-archive/internal/api"
	"github.com/leca/scene-archive/internal/imageproc"
	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/search"
	"github.com/leca/scene-archive/internal/storage"
)

// sceneDetail is a scene with the URL of its current live version, if any.
type sceneDetail struct {
	*model.Scene
	ImageURL *string `json:"image_url"`
}

// ListScenes handles GET /api/public/scenes.
func (h *Handler) ListScenes(w http.ResponseWriter, r *http.Request) {
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
	limit, offset = search.Page(limit, offset)

	scenes, err := h.DB.ListScenes(r.Context(), r.URL.Query().Get("batch"), limit, offset)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	info := api.ResultInfo{Limit: limit, Offset: offset, Count: len(scenes)}
	api.WriteJSON(w, http.StatusOK, api.PaginatedResponse("scenes", scenes, info))
}

// GetScene handles GET /api/public/scenes/{scene_id}.
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")

	sc, err := h.DB.GetScene(r.Context(), sceneID)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	detail := sceneDetail{Scene: sc}
	v, err := h.DB.GetCurrentLiveVersion(r.Context(), sceneID)
	switch {
	case err == nil:
		detail.ImageURL = h.imageURL(v.StorageKey)
	case !errors.Is(err, model.ErrNotFound):
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, detail)
}

// GetSceneImage handles GET /api/public/scenes/{scene_id}/image. Backends
// that hold the bytes stream them; others redirect to the public URL.
func (h *Handler) GetSceneImage(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "scene_id")

	v, err := h.DB.GetCurrentLiveVersion(r.Context(), sceneID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	key := *v.StorageKey

	blobs, ok := h.Store.(storage.Blobs)
	if !ok {
		http.Redirect(w, r, h.Store.URLFor(key), http.StatusFound)
		return
	}
	h.streamBlob(w, r, blobs, key)
}

// ServeStorage handles GET /api/storage/*, serving local objects by key.
func (h *Handler) ServeStorage(w http.ResponseWriter, r *http.Request) {
	blobs, ok := h.Store.(storage.Blobs)
	if !ok {
		api.NotFound(w, "storage is not served by this instance")
		return
	}
	h.streamBlob(w, r, blobs, chi.URLParam(r, "*"))
}

func (h *Handler) streamBlob(w http.ResponseWriter, r *http.Request, blobs storage.Blobs, key string) {
	exists, err := blobs.Exists(r.Context(), key)
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		api.BadRequest(w, "invalid storage key")
		return
	case err != nil:
		api.WriteError(w, errors.Join(model.ErrDependencyUnavailable, err))
		return
	case !exists:
		api.NotFound(w, "image not found")
		return
	}

	rc, err := blobs.Retrieve(key)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			api.NotFound(w, "image not found")
			return
		}
		api.WriteError(w, errors.Join(model.ErrDependencyUnavailable, err))
		return
	}
	defer rc.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		api.WriteError(w, errors.Join(model.ErrDependencyUnavailable, err))
		return
	}
	head = head[:n]

	w.Header().Set("Cache-Control", "public, max-age=86400")
	// Keys carry no extension, so the type comes from the magic bytes.
	// http.DetectContentType does not know TIFF.
	w.Header().Set("Content-Type", imageproc.ContentType(imageproc.DetectFormat(head)))

	if rs, ok := rc.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekStart); err == nil {
			http.ServeContent(w, r, key, time.Time{}, rs)
			return
		}
	}
	if _, err := io.Copy(w, io.MultiReader(bytes.NewReader(head), rc)); err != nil {
		slog.Debug("streaming object interrupted", "key", key, "error", err)
	}
}

// PutStorageObject handles PUT /api/admin/storage/*, the upload step that
// precedes marking a version live on the local backend.
func (h *Handler) PutStorageObject(w http.ResponseWriter, r *http.Request) {
	blobs, ok := h.Store.(storage.Blobs)
	if !ok {
		api.Conflict(w, "the configured storage backend does not accept uploads")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	key := chi.URLParam(r, "*")
	n, err := blobs.Store(key, r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			api.TooLarge(w, "object exceeds the upload limit")
		case errors.Is(err, storage.ErrInvalidKey):
			api.BadRequest(w, "invalid storage key")
		default:
			api.WriteError(w, errors.Join(model.ErrDependencyUnavailable, err))
		}
		return
	}

	resp := map[string]interface{}{
		"storage_key": key,
		"size":        n,
		"url":         blobs.URLFor(key),
	}
	if fp := fingerprint(blobs, key); fp != nil {
		resp["format"] = fp.Format
		resp["perceptual_hash"] = fp.Hash
		resp["width"] = fp.Width
		resp["height"] = fp.Height
	}
	api.WriteJSON(w, http.StatusCreated, resp)
}

// fingerprint hashes a stored object so the uploader can compare it with
// the hash the management system reported. Non-image objects yield nil.
func fingerprint(blobs storage.Blobs, key string) *imageproc.Fingerprint {
	rc, err := blobs.Retrieve(key)
	if err != nil {
		slog.Warn("reading stored object for fingerprint", "key", key, "error", err)
		return nil
	}
	defer rc.Close()

	fp, err := imageproc.HashReader(rc)
	if err != nil {
		if !errors.Is(err, imageproc.ErrUnsupportedFormat) {
			slog.Warn("fingerprinting stored object", "key", key, "error", err)
		}
		return nil
	}
	return fp
}

// GetRoll handles GET /api/public/roll/{roll_number}: roll metadata plus
// the roll's scenes that have a live current version.
func (h *Handler) GetRoll(w http.ResponseWriter, r *http.Request) {
	rollNumber := chi.URLParam(r, "roll_number")

	scenes, err := h.DB.ListScenesByRoll(r.Context(), rollNumber)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if len(scenes) == 0 {
		api.NotFound(w, "roll not found")
		return
	}

	visible := make([]sceneDetail, 0, len(scenes))
	for _, sc := range scenes {
		v, err := h.DB.GetCurrentLiveVersion(r.Context(), sc.SceneID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			api.WriteError(w, err)
			return
		}
		visible = append(visible, sceneDetail{Scene: sc, ImageURL: h.imageURL(v.StorageKey)})
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roll":   scenes[0].Roll(),
		"scenes": visible,
		"total":  len(visible),
	})
}

// GetStats handles GET /api/public/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.DB.Stats(r.Context())
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, st)
}
