package consent

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/WilliamSuiself/remote-mcp-local/internal/consent"
	"github.com/WilliamSuiself/remote-mcp-local/internal/templates"
)

// HandleAuthorize parses the authorization request and shows the consent screen
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	screen, err := h.orchestrator.Begin(r.Context(), r)
	if err != nil {
		h.writeFailure(ww, r, err)
		return
	}

	data := templates.ConsentData{Scopes: screen.Scopes, Request: screen.Request}
	render := h.templates.RenderUnauthenticatedConsent
	if screen.State == consent.StateAwaitingConsentAuthenticated {
		render = h.templates.RenderAuthenticatedConsent
	}
	if err := render(ww, data); err != nil {
		h.writeFailure(ww, r, err)
		return
	}
	h.metrics.ScreenShown(string(screen.State))
}
