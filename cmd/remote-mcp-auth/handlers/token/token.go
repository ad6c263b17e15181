// Package token implements the token endpoint per RFC 6749 section 3.2
package token

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/WilliamSuiself/remote-mcp-local/cmd/remote-mcp-auth/handlers/common"
	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
)

// Exchanger redeems authorization codes
type Exchanger interface {
	ExchangeCode(ctx context.Context, req oauth.TokenRequest) (*oauth.Token, error)
}

// Recorder receives token endpoint metrics
type Recorder interface {
	TokenRequest(result string)
}

// Handler processes access token requests per RFC 6749 section 4.1.3
type Handler struct {
	provider Exchanger
	metrics  Recorder
	logger   *slog.Logger
}

// Config contains handler configuration options
type Config struct {
	Provider Exchanger
	Metrics  Recorder
	Logger   *slog.Logger
}

// New creates a new token request handler
func New(cfg Config) *Handler {
	h := &Handler{
		provider: cfg.Provider,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// ServeHTTP handles token requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, http.StatusBadRequest, oauth.ErrorCodeInvalidRequest, "POST method required")
		return
	}

	if err := r.ParseForm(); err != nil {
		h.fail(w, http.StatusBadRequest, oauth.ErrorCodeInvalidRequest, "Invalid request format")
		return
	}

	// Parameters sent without a value MUST be treated as if omitted and
	// request parameters MUST NOT be included more than once (RFC 6749 section 3.2)
	for key, values := range r.PostForm {
		if len(values) > 1 {
			h.fail(w, http.StatusBadRequest, oauth.ErrorCodeInvalidRequest,
				"Parameters MUST NOT be included more than once: "+key)
			return
		}
	}

	req := oauth.TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		Code:         r.PostForm.Get("code"),
		RedirectURI:  r.PostForm.Get("redirect_uri"),
		ClientID:     r.PostForm.Get("client_id"),
		ClientSecret: r.PostForm.Get("client_secret"),
		CodeVerifier: r.PostForm.Get("code_verifier"),
	}
	if req.GrantType == "" {
		h.fail(w, http.StatusBadRequest, oauth.ErrorCodeInvalidRequest, "The grant_type parameter is REQUIRED")
		return
	}

	// Client credentials may arrive in the Authorization header, form encoded
	// per RFC 6749 section 2.3.1
	usedBasic := false
	if user, pass, ok := r.BasicAuth(); ok {
		if req.ClientSecret != "" {
			h.fail(w, http.StatusBadRequest, oauth.ErrorCodeInvalidRequest,
				"Clients MUST NOT use more than one authentication method")
			return
		}
		id, idErr := url.QueryUnescape(user)
		secret, secretErr := url.QueryUnescape(pass)
		if idErr != nil || secretErr != nil {
			h.fail(w, http.StatusUnauthorized, oauth.ErrorCodeInvalidClient, "Malformed client credentials")
			return
		}
		if req.ClientID != "" && req.ClientID != id {
			h.fail(w, http.StatusBadRequest, oauth.ErrorCodeInvalidRequest, "client_id does not match the Authorization header")
			return
		}
		req.ClientID, req.ClientSecret = id, secret
		usedBasic = true
	}

	token, err := h.provider.ExchangeCode(r.Context(), req)
	if err != nil {
		code := oauth.ErrorCode(err)
		h.record(code)
		if code == oauth.ErrorCodeServerError {
			h.logger.ErrorContext(r.Context(), "token exchange failed", "client_id", req.ClientID, "error", err)
		}
		if code == oauth.ErrorCodeInvalidClient && usedBasic {
			w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
		}
		common.WriteOAuthError(w, err)
		return
	}

	h.record("ok")
	w.Header().Set("Pragma", "no-cache")
	common.WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) fail(w http.ResponseWriter, status int, code, description string) {
	h.record(code)
	common.WriteError(w, status, code, description)
}

func (h *Handler) record(result string) {
	if h.metrics != nil {
		h.metrics.TokenRequest(result)
	}
}
