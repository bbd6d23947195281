package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leca/scene-archive/internal/model"
)

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse(9400, msg))
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse(9401, "Authentication required"))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusNotFound, ErrorResponse(9404, msg))
}

// Conflict writes a 409 error response.
func Conflict(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusConflict, ErrorResponse(9409, msg))
}

// UnprocessableEntity writes a 422 error response.
func UnprocessableEntity(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse(9422, msg))
}

// TooLarge writes a 413 error response.
func TooLarge(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse(9413, msg))
}

// InternalError writes a 500 error response. The message is generic; the
// cause belongs in the server log.
func InternalError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse(9500, "Internal server error"))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse(9503, msg))
}

// WriteError maps a catalog error to its HTTP status and writes it.
func WriteError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		resp := ErrorResponse(9422, ve.Error())
		resp.Errors[0].Source = &APIErrorSource{Pointer: "/" + ve.Field}
		WriteJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, model.ErrNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		Conflict(w, err.Error())
	case errors.Is(err, model.ErrDependencyUnavailable):
		slog.Warn("dependency unavailable", "error", err)
		ServiceUnavailable(w, "A required backend is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("request timed out", "error", err)
		ServiceUnavailable(w, "The request timed out")
	default:
		slog.Error("request failed", "error", err)
		InternalError(w)
	}
}
