//go:build conformance

package conformance

import (
	"net/http"
	"strings"
	"testing"
)

func TestError_404_Format(t *testing.T) {
	status, raw := getJSON(t, publicURL("/scenes/"+uniqueID("missing")))
	if status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", status)
	}
	assertErrorEnvelope(t, raw)
}

func TestError_400_MalformedPayload(t *testing.T) {
	status, raw := doJSON(t, "POST", adminURL("/sync/data"), strings.NewReader("not-json"))
	if status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", status)
	}
	assertErrorEnvelope(t, raw)
}

func TestError_400_SimilarNeedsExactlyOneQuery(t *testing.T) {
	status, raw := getJSON(t, publicURL("/similar"))
	if status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", status)
	}
	assertErrorEnvelope(t, raw)

	status, _ = getJSON(t, publicURL("/similar"+query(map[string]string{"hash": "not-hex"})))
	if status != http.StatusBadRequest {
		t.Errorf("invalid hash: expected status 400, got %d", status)
	}
}

func TestError_422_EmptyStorageKey(t *testing.T) {
	id := uniqueID("conf-key")
	syncScenes(t, `{"scenes":[`+sceneJSON(id, "CONF", "storage key check", "abcd")+`]}`)

	status, raw := doJSON(t, "PUT", adminURL("/versions/"+id+"-v/storage-key"), strings.NewReader(`{"storage_key":""}`))
	if status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", status)
	}
	assertErrorEnvelope(t, raw)
}
