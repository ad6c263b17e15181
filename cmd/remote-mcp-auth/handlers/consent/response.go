package consent

import (
	"errors"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/WilliamSuiself/remote-mcp-local/internal/consent"
)

// Literal bodies of the protocol error responses
const (
	msgInvalidContentType = "INVALID CONTENT TYPE"
	msgInvalidLogin       = "INVALID LOGIN"
)

// writeText writes a short literal HTML body
func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

// writeFailure converts an error from the consent flow into its response.
// Nothing is written if a response is already under way.
func (h *Handler) writeFailure(w middleware.WrapResponseWriter, r *http.Request, err error) {
	if w.Status() != 0 {
		h.logger.ErrorContext(r.Context(), "failure after response started", "path", r.URL.Path, "error", err)
		return
	}

	if errors.Is(err, consent.ErrInvalidLogin) {
		writeText(w, http.StatusUnauthorized, msgInvalidLogin)
		return
	}

	message := err.Error()
	var engineErr *consent.EngineError
	if errors.As(err, &engineErr) {
		h.metrics.EngineFailed(engineErr.Op)
		message = engineErr.Err.Error()
	}

	h.logger.ErrorContext(r.Context(), "consent request failed", "path", r.URL.Path, "error", err)
	writeText(w, http.StatusInternalServerError, "Error: "+html.EscapeString(message))
}
