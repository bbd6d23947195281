//go:build conformance

package conformance

import (
	"net/http"
	"testing"
)

func TestEnvelope_ErrorShape(t *testing.T) {
	status, raw := getJSON(t, publicURL("/roll/"+uniqueID("no-roll")))
	if status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", status)
	}
	assertErrorEnvelope(t, raw)
}

func TestEnvelope_PaginatedShape(t *testing.T) {
	status, raw := getJSON(t, publicURL("/scenes?limit=5"))
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}

	assertField[[]any](t, raw, "scenes")
	resultInfo := assertField[map[string]any](t, raw, "result_info")
	if resultInfo == nil {
		return
	}
	assertField[float64](t, resultInfo, "limit")
	assertField[float64](t, resultInfo, "offset")
	assertField[float64](t, resultInfo, "count")
}

func TestEnvelope_Health(t *testing.T) {
	status, raw := getJSON(t, baseURL+"/health")
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	if got := assertField[string](t, raw, "status"); got != "ok" {
		t.Errorf("expected status ok, got %q", got)
	}
}
