package consent

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/WilliamSuiself/remote-mcp-local/internal/consent"
	"github.com/WilliamSuiself/remote-mcp-local/internal/templates"
)

const formContentType = "application/x-www-form-urlencoded"

// HandleApprove applies the decision posted from a consent screen
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		if rvr == http.ErrAbortHandler {
			panic(rvr)
		}
		h.logger.ErrorContext(r.Context(), "panic in approve handler",
			"panic", rvr,
			"stack", string(debug.Stack()),
		)
		h.writeFailure(ww, r, fmt.Errorf("%v", rvr))
	}()

	if !strings.Contains(r.Header.Get("Content-Type"), formContentType) {
		writeText(ww, http.StatusBadRequest, msgInvalidContentType)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeFailure(ww, r, fmt.Errorf("reading form: %w", err))
		return
	}

	outcome, err := h.orchestrator.Decide(r.Context(), consent.DecodeForm(r.PostForm))
	if err != nil {
		h.writeFailure(ww, r, err)
		return
	}

	switch outcome.State {
	case consent.StateRejected:
		err = h.templates.RenderRejected(ww, templates.RejectedData{HomeURL: outcome.HomeURL})
	default:
		err = h.templates.RenderApproved(ww, templates.ApprovedData{RedirectURL: outcome.RedirectURL})
	}
	if err != nil {
		h.writeFailure(ww, r, err)
		return
	}
	h.metrics.DecisionMade(string(outcome.State))
}
