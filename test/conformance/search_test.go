//go:build conformance

package conformance

import (
	"net/http"
	"testing"
)

func TestSearch_ResponseShape(t *testing.T) {
	status, raw := getJSON(t, publicURL("/search"+query(map[string]string{"q": "conformance", "limit": "5"})))
	if status != http.StatusOK {
		t.Fatalf("search returned %d", status)
	}

	assertField[[]any](t, raw, "results")
	assertField[float64](t, raw, "total")
	facets := assertField[map[string]any](t, raw, "facets")
	for _, dim := range []string{"roll_numbers", "roll_dates", "batch_names", "date_sources"} {
		assertField[[]any](t, facets, dim)
	}
}

func TestSearch_FindsSyncedScene(t *testing.T) {
	batch := uniqueID("CONFB")
	id := uniqueID("conf-search")
	syncScenes(t, `{"scenes":[`+sceneJSON(id, batch, "lighthouse beyond the breakwater", "1111")+`]}`)

	status, raw := getJSON(t, publicURL("/search"+query(map[string]string{"q": "lighthouse", "batch_name": batch})))
	if status != http.StatusOK {
		t.Fatalf("search returned %d", status)
	}
	if total := assertField[float64](t, raw, "total"); total != 1 {
		t.Fatalf("expected 1 result, got %v", total)
	}
	results := assertField[[]any](t, raw, "results")
	scene, ok := results[0].(map[string]any)
	if !ok {
		t.Fatalf("results[0] should be object, got %T", results[0])
	}
	if scene["scene_id"] != id {
		t.Errorf("expected scene %s, got %v", id, scene["scene_id"])
	}

	facets := assertField[map[string]any](t, raw, "facets")
	if _, ok := facets["batch_names"]; ok {
		t.Error("pinned batch_names facet should be omitted")
	}
}

func TestSearch_PunctuationIsSafe(t *testing.T) {
	status, _ := getJSON(t, publicURL("/search"+query(map[string]string{"q": `"unbalanced AND (`})))
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
}

func TestSuggest_ResponseShape(t *testing.T) {
	status, raw := getJSON(t, publicURL("/search/suggestions"+query(map[string]string{"q": "light"})))
	if status != http.StatusOK {
		t.Fatalf("suggestions returned %d", status)
	}
	assertField[[]any](t, raw, "suggestions")
}
