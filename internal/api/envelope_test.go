package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leca/scene-archive/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(9400, "bad request")

	assert.False(t, resp.Success)
	assert.Len(t, resp.Errors, 1)
	assert.Equal(t, 9400, resp.Errors[0].Code)
	assert.Equal(t, "bad request", resp.Errors[0].Message)
}

func TestPaginatedResponse(t *testing.T) {
	items := []string{"a", "b"}
	info := ResultInfo{Limit: 20, Offset: 40, Count: 2}

	resp := PaginatedResponse("scenes", items, info)

	assert.Equal(t, items, resp["scenes"])
	assert.Equal(t, info, resp["result_info"])
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, map[string]string{"hello": "world"})

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var decoded map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&decoded))
	assert.Equal(t, "world", decoded["hello"])
}

func TestErrorResponseJSONStructure(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse(9401, "Authentication required"))

	var raw map[string]interface{}
	err := json.NewDecoder(w.Result().Body).Decode(&raw)
	require.NoError(t, err)

	assert.Equal(t, false, raw["success"])

	errors, ok := raw["errors"].([]interface{})
	require.True(t, ok)
	require.Len(t, errors, 1)

	errObj, ok := errors[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(9401), errObj["code"])
	assert.Equal(t, "Authentication required", errObj["message"])
	assert.NotContains(t, errObj, "source")
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"not found", fmt.Errorf("scene x: %w", model.ErrNotFound), http.StatusNotFound, 9404},
		{"scene not found", model.ErrSceneNotFound, http.StatusNotFound, 9404},
		{"conflict", model.ErrConflict, http.StatusConflict, 9409},
		{"constraint violation", fmt.Errorf("upsert: %w", model.ErrConstraintViolation), http.StatusConflict, 9409},
		{"validation", &model.ValidationError{Item: "v1", Field: "perceptual_hash", Reason: "must be a hex string"}, http.StatusUnprocessableEntity, 9422},
		{"dependency", fmt.Errorf("begin tx: %w", model.ErrDependencyUnavailable), http.StatusServiceUnavailable, 9503},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, 9500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, tt.code, resp.Errors[0].Code)
		})
	}
}

func TestWriteErrorValidationPointer(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, &model.ValidationError{Field: "scene_id", Reason: "required"})

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Errors[0].Source)
	assert.Equal(t, "/scene_id", resp.Errors[0].Source.Pointer)
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("sqlite: disk I/O error at /data/db"))

	assert.NotContains(t, w.Body.String(), "/data/db")
}
