package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/leca/scene-archive/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncData_AppliesBatch(t *testing.T) {
	ts, db := testServer(t)

	status, raw := syncBody(t, ts, seedPayload)
	require.Equal(t, http.StatusOK, status, raw)

	assert.Equal(t, "Sync completed", raw["message"])
	assert.Equal(t, false, raw["dry_run"])
	assert.Equal(t, float64(4), raw["total_scenes"])
	assert.NotEmpty(t, raw["sync_id"])

	stats := raw["stats"].(map[string]interface{})
	assert.Equal(t, float64(4), stats["scenes_synced"])
	assert.Equal(t, float64(3), stats["versions_marked_live"])
	assert.Equal(t, float64(0), stats["errors"])

	progress := raw["progress"].(map[string]interface{})
	assert.Equal(t, float64(4), progress["completed"])
	assert.Equal(t, float64(100), progress["percentage"])

	v, err := db.GetCurrentLiveVersion(context.Background(), "scene-1")
	require.NoError(t, err)
	assert.Equal(t, "v1-crop", v.VersionID)

	status, raw = doJSON(t, authReq(http.MethodGet, ts.URL+"/api/admin/sync/status", nil))
	require.Equal(t, http.StatusOK, status)
	last := raw["last_sync"].(map[string]interface{})
	assert.Equal(t, model.SyncStatusSuccess, last["status"])
	catalog := raw["catalog"].(map[string]interface{})
	assert.Equal(t, float64(4), catalog["total_scenes"])
}

func TestSyncData_DryRun(t *testing.T) {
	ts, db := testServer(t)

	status, raw := doJSON(t, authReq(http.MethodPost, ts.URL+"/api/admin/sync/data?dry_run=true", strings.NewReader(seedPayload)))
	require.Equal(t, http.StatusOK, status, raw)
	assert.Equal(t, true, raw["dry_run"])
	assert.NotContains(t, raw, "sync_id")
	stats := raw["stats"].(map[string]interface{})
	assert.Equal(t, float64(4), stats["scenes_synced"])

	_, err := db.GetScene(context.Background(), "scene-1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	status, raw = doJSON(t, authReq(http.MethodGet, ts.URL+"/api/admin/sync/status", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, raw["last_sync"])
}

func TestSyncData_DryRunInBody(t *testing.T) {
	ts, _ := testServer(t)

	status, raw := syncBody(t, ts, `{"dry_run": true, "scenes": [{"scene_id": "s", "batch_name": "b", "base_filename": "f"}]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, raw["dry_run"])

	status, _ = get(t, ts.URL+"/api/public/scenes/s")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSyncData_PartialBatch(t *testing.T) {
	ts, _ := testServer(t)

	status, raw := syncBody(t, ts, `[
		{"scene_id": "ok", "batch_name": "A", "base_filename": "f1", "versions": [
			{"version_id": "v1", "version_type": "scan", "is_current": true},
			{"version_id": "v2", "version_type": "scan", "perceptual_hash": "zz"}
		]},
		{"scene_id": "", "batch_name": "A", "base_filename": "f2"}
	]`)
	require.Equal(t, http.StatusOK, status, raw)
	assert.Equal(t, "Sync completed with skipped entries", raw["message"])

	stats := raw["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["scenes_synced"])
	assert.Equal(t, float64(2), stats["errors"])
	assert.Equal(t, float64(1), stats["skipped"])

	progress := raw["progress"].(map[string]interface{})
	assert.Equal(t, float64(50), progress["percentage"])
}

func TestSyncData_InvalidPayload(t *testing.T) {
	ts, _ := testServer(t)

	for _, body := range []string{"", "not json", `{"scenes": 1}`} {
		status, raw := syncBody(t, ts, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, float64(9400), errorCode(t, raw))
	}
}

func TestSyncData_RequiresAuth(t *testing.T) {
	ts, _ := testServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/admin/sync/data", strings.NewReader(seedPayload))
	require.NoError(t, err)
	status, raw := doJSON(t, req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, float64(9401), errorCode(t, raw))

	req = authReq(http.MethodPost, ts.URL+"/api/admin/sync/data", strings.NewReader(seedPayload))
	req.Header.Set("Authorization", "Bearer nope")
	status, _ = doJSON(t, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminVersions(t *testing.T) {
	ts, _ := testServer(t)
	seed(t, ts)

	status, raw := doJSON(t, authReq(http.MethodGet, ts.URL+"/api/admin/scenes/scene-1/versions", nil))
	require.Equal(t, http.StatusOK, status)
	versions := raw["versions"].([]interface{})
	assert.Len(t, versions, 2)

	status, _ = doJSON(t, authReq(http.MethodGet, ts.URL+"/api/admin/scenes/missing/versions", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSetStorageKey(t *testing.T) {
	ts, _ := testServer(t)
	seed(t, ts)

	// Taking the current version offline hides the scene's image.
	status, raw := doJSON(t, authReq(http.MethodPut, ts.URL+"/api/admin/versions/v1-crop/storage-key", strings.NewReader(`{"storage_key": null}`)))
	require.Equal(t, http.StatusOK, status, raw)
	assert.Equal(t, false, raw["live"])

	status, raw = get(t, ts.URL+"/api/public/scenes/scene-1")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, raw["image_url"])

	status, raw = doJSON(t, authReq(http.MethodPut, ts.URL+"/api/admin/versions/v1-crop/storage-key", strings.NewReader(`{"storage_key": "custom/key.jpg"}`)))
	require.Equal(t, http.StatusOK, status, raw)
	assert.Equal(t, true, raw["live"])

	status, raw = get(t, ts.URL+"/api/public/scenes/scene-1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/api/storage/custom/key.jpg", raw["image_url"])

	status, _ = doJSON(t, authReq(http.MethodPut, ts.URL+"/api/admin/versions/missing/storage-key", strings.NewReader(`{"storage_key": "k"}`)))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, authReq(http.MethodPut, ts.URL+"/api/admin/versions/v1-crop/storage-key", strings.NewReader(`{"storage_key": ""}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doJSON(t, authReq(http.MethodPut, ts.URL+"/api/admin/versions/v1-crop/storage-key", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, status)
}
