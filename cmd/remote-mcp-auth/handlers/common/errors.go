// Package common holds the JSON response helpers shared by the protocol endpoints
package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
)

// ErrorResponse is an OAuth error body per RFC 6749 section 5.2
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// SetJSONHeaders sets the headers required on token endpoint responses
func SetJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
}

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	SetJSONHeaders(w)
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// WriteError sends an OAuth error response
func WriteError(w http.ResponseWriter, status int, code string, description string) {
	WriteJSON(w, status, ErrorResponse{
		Error:            code,
		ErrorDescription: strings.TrimSpace(description),
	})
}

// WriteOAuthError maps err to an error response. Protocol errors keep their
// code; anything else is reported as server_error without details.
func WriteOAuthError(w http.ResponseWriter, err error) {
	var oErr *oauth.Error
	if !errors.As(err, &oErr) {
		WriteError(w, http.StatusInternalServerError, oauth.ErrorCodeServerError, "Internal server error")
		return
	}
	description := oErr.Description
	if oErr.Code == oauth.ErrorCodeServerError {
		description = "Internal server error"
	}
	WriteError(w, StatusForCode(oErr.Code), oErr.Code, description)
}

// StatusForCode returns the HTTP status that accompanies an OAuth error code
func StatusForCode(code string) int {
	switch code {
	case oauth.ErrorCodeInvalidClient:
		return http.StatusUnauthorized
	case oauth.ErrorCodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// WriteJSONError handles JSON encoding failures with a standardized response
func WriteJSONError(w http.ResponseWriter, _ error) {
	SetJSONHeaders(w)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"server_error","error_description":"Failed to encode response"}`))
}
