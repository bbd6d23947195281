package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leca/scene-archive/internal/config"
	"github.com/leca/scene-archive/internal/database"
	"github.com/leca/scene-archive/internal/router"
	"github.com/leca/scene-archive/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func testConfig() *config.Config {
	return &config.Config{
		AdminToken: testToken,
		Similarity: config.SimilarityConfig{
			Threshold:     8,
			MaxCandidates: 10000,
			Timeout:       5 * time.Second,
		},
	}
}

func newTestDB(t *testing.T) *database.SQLiteDB {
	t.Helper()
	db, err := database.NewSQLiteDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// testServer creates a test HTTP server backed by in-memory SQLite
// and a temporary local storage directory.
func testServer(t *testing.T) (*httptest.Server, *database.SQLiteDB) {
	t.Helper()
	return testServerWith(t, storage.NewLocal(t.TempDir()))
}

func testServerWith(t *testing.T, store storage.Backend) (*httptest.Server, *database.SQLiteDB) {
	t.Helper()
	db := newTestDB(t)
	srv := router.New(db, store, testConfig())
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts, db
}

// authReq creates an *http.Request with the test bearer token.
func authReq(method, url string, body io.Reader) *http.Request {
	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

// doJSON performs req and decodes the JSON body.
func doJSON(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw), string(data))
	return resp.StatusCode, raw
}

func get(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return doJSON(t, req)
}

func syncBody(t *testing.T, ts *httptest.Server, body string) (int, map[string]interface{}) {
	t.Helper()
	return doJSON(t, authReq(http.MethodPost, ts.URL+"/api/admin/sync/data", strings.NewReader(body)))
}

func errorCode(t *testing.T, raw map[string]interface{}) float64 {
	t.Helper()
	errs, ok := raw["errors"].([]interface{})
	require.True(t, ok, "errors array expected: %v", raw)
	require.NotEmpty(t, errs)
	return errs[0].(map[string]interface{})["code"].(float64)
}

const seedPayload = `{"scenes": [
	{
		"scene_id": "scene-1", "batch_name": "A", "base_filename": "DSCF0001",
		"description": "a red sunset over the bay", "roll_number": "R1", "roll_date": "1962-05",
		"roll_comment": "first roll of summer",
		"versions": [
			{"version_id": "v1-scan", "version_type": "scan", "local_path": "/s/1.tif", "perceptual_hash": "ffff"},
			{"version_id": "v1-crop", "version_type": "final_crop", "local_path": "/c/1.jpg", "perceptual_hash": "ffff", "is_current": true}
		]
	},
	{
		"scene_id": "scene-2", "batch_name": "A", "base_filename": "DSCF0002",
		"description": "fishing boats", "roll_number": "R1", "roll_date": "1962-05",
		"versions": [
			{"version_id": "v2-crop", "version_type": "final_crop", "local_path": "/c/2.jpg", "perceptual_hash": "fffe", "is_current": true}
		]
	},
	{
		"scene_id": "scene-3", "batch_name": "B", "base_filename": "IMG_0003",
		"roll_comment": "roll found in attic", "roll_number": "R2",
		"versions": [
			{"version_id": "v3-crop", "version_type": "final_crop", "local_path": "/c/3.jpg", "perceptual_hash": "0000", "is_current": true}
		]
	},
	{
		"scene_id": "scene-4", "batch_name": "B", "base_filename": "IMG_0004", "roll_number": "R1",
		"versions": []
	}
]}`

func seed(t *testing.T, ts *httptest.Server) {
	t.Helper()
	status, raw := syncBody(t, ts, seedPayload)
	require.Equal(t, http.StatusOK, status, raw)
}

// --------------------------------------------------------------------------
// Health
// --------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	ts, _ := testServer(t)
	status, raw := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", raw["status"])
}

func TestMetrics(t *testing.T) {
	ts, _ := testServer(t)
	seed(t, ts)

	status, _ := get(t, ts.URL+"/api/public/similar?scene_id=scene-1")
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	text := string(body)
	assert.Contains(t, text, "scene_archive_catalog_scenes 4")
	assert.Contains(t, text, `scene_archive_sync_runs_total{mode="apply",status="success"} 1`)
	assert.Contains(t, text, `scene_archive_similar_queries_total{kind="scene",status="ok"} 1`)
	assert.Contains(t, text, `route="/api/public/similar"`)
}
