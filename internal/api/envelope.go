package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the error envelope returned by every failing endpoint.
// Successful endpoints write their payload directly.
type Response struct {
	Success bool       `json:"success"`
	Errors  []APIError `json:"errors"`
}

// APIError represents a single error in the response envelope.
type APIError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Source  *APIErrorSource `json:"source,omitempty"`
}

// APIErrorSource identifies the payload field that caused the error.
type APIErrorSource struct {
	Pointer string `json:"pointer"`
}

// ResultInfo carries pagination metadata for list endpoints.
type ResultInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ErrorResponse builds an error envelope with one error.
func ErrorResponse(code int, message string) Response {
	return Response{
		Success: false,
		Errors: []APIError{
			{Code: code, Message: message},
		},
	}
}

// PaginatedResponse wraps a list page with its result_info.
func PaginatedResponse(key string, items interface{}, info ResultInfo) map[string]interface{} {
	return map[string]interface{}{
		key:           items,
		"result_info": info,
	}
}

// WriteJSON serialises resp as JSON and writes it to w with the given HTTP status code.
func WriteJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("WriteJSON: failed to encode response", "error", err)
	}
}
