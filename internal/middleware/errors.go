package middleware

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Errors []errorEntry `json:"errors"`
}

type errorEntry struct {
	Message    string            `json:"message"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// writeGraphQLError writes a GraphQL-shaped error body for requests rejected
// before execution.
func writeGraphQLError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Errors: []errorEntry{{
		Message:    message,
		Extensions: map[string]string{"code": code},
	}}})
}
