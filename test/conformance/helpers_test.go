//go:build conformance

package conformance

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

// publicURL builds a full URL under /api/public.
func publicURL(path string) string {
	return strings.TrimRight(baseURL, "/") + "/api/public" + path
}

// adminURL builds a full URL under /api/admin.
func adminURL(path string) string {
	return strings.TrimRight(baseURL, "/") + "/api/admin" + path
}

// doRequest performs an HTTP request and returns the response.
func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// readJSON decodes the response body as map[string]any and closes it.
func readJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal JSON: %v\nbody: %s", err, string(data))
	}
	return raw
}

// doJSON performs an admin request and returns the decoded JSON.
func doJSON(t *testing.T, method, url string, body io.Reader) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := doRequest(t, req)
	return resp.StatusCode, readJSON(t, resp)
}

// getJSON performs an unauthenticated GET and returns the decoded JSON.
func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	resp := doRequest(t, req)
	return resp.StatusCode, readJSON(t, resp)
}

// assertErrorEnvelope validates the error envelope structure.
func assertErrorEnvelope(t *testing.T, raw map[string]any) {
	t.Helper()

	success, ok := raw["success"].(bool)
	if !ok {
		t.Errorf("'success' should be bool, got %T", raw["success"])
	} else if success {
		t.Error("success should be false for error responses")
	}

	errArr, ok := raw["errors"].([]any)
	if !ok {
		t.Errorf("'errors' should be array, got %T", raw["errors"])
		return
	}
	if len(errArr) == 0 {
		t.Error("errors array should be non-empty")
	}
	for i, e := range errArr {
		errObj, ok := e.(map[string]any)
		if !ok {
			t.Errorf("errors[%d] should be object, got %T", i, e)
			continue
		}
		if _, ok := errObj["code"].(float64); !ok {
			t.Errorf("errors[%d].code should be numeric, got %T", i, errObj["code"])
		}
		if _, ok := errObj["message"].(string); !ok {
			t.Errorf("errors[%d].message should be string, got %T", i, errObj["message"])
		}
	}
}

// assertField validates a field exists in an object and has the expected Go type.
// Returns the typed value.
func assertField[T any](t *testing.T, obj map[string]any, field string) T {
	t.Helper()
	val, ok := obj[field]
	if !ok {
		var zero T
		t.Errorf("missing field %q", field)
		return zero
	}
	typed, ok := val.(T)
	if !ok {
		var zero T
		t.Errorf("field %q: expected %T, got %T (%v)", field, zero, val, val)
		return zero
	}
	return typed
}

// uniqueID returns an identifier that does not collide with earlier runs
// against the same target.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// hexSuffix renders n as a four digit hex string for building nearby hashes.
func hexSuffix(n int) string {
	return fmt.Sprintf("%04x", n)
}

// syncScenes pushes a payload through the admin API and fails the test on
// any status other than 200.
func syncScenes(t *testing.T, payload string) map[string]any {
	t.Helper()
	status, raw := doJSON(t, "POST", adminURL("/sync/data"), strings.NewReader(payload))
	if status != http.StatusOK {
		t.Fatalf("sync failed with status %d: %v", status, raw)
	}
	return raw
}

// sceneJSON renders one scene descriptor with a single current version.
func sceneJSON(sceneID, batch, description, hash string) string {
	return fmt.Sprintf(`{"scene_id":%q,"batch_name":%q,"base_filename":%q,"description":%q,
		"roll_number":"CONF","versions":[{"version_id":%q,"version_type":"final_crop",
		"local_path":"/conformance","perceptual_hash":%q,"is_current":true}]}`,
		sceneID, batch, sceneID, description, sceneID+"-v", hash)
}

func query(values map[string]string) string {
	q := url.Values{}
	for k, v := range values {
		q.Set(k, v)
	}
	return "?" + q.Encode()
}
