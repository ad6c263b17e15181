// Package register implements dynamic client registration per RFC 7591
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/WilliamSuiself/remote-mcp-local/cmd/remote-mcp-auth/handlers/common"
	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
)

const maxBodyBytes = 64 << 10

// Registrar creates clients
type Registrar interface {
	RegisterClient(ctx context.Context, md oauth.ClientMetadata) (*oauth.RegisteredClient, error)
}

// Recorder receives registration metrics
type Recorder interface {
	ClientRegistered()
}

// Handler processes client registration requests per RFC 7591 section 3.1
type Handler struct {
	provider Registrar
	metrics  Recorder
	logger   *slog.Logger
}

// Config contains handler configuration options
type Config struct {
	Provider Registrar
	Metrics  Recorder
	Logger   *slog.Logger
}

// New creates a new registration handler
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

// ServeHTTP handles registration requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, http.StatusBadRequest, oauth.ErrorCodeInvalidRequest, "POST method required")
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		common.WriteError(w, http.StatusBadRequest, oauth.ErrorCodeInvalidClientMetadata,
			"Client metadata must be sent as application/json")
		return
	}

	var md oauth.ClientMetadata
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&md); err != nil {
		common.WriteError(w, http.StatusBadRequest, oauth.ErrorCodeInvalidClientMetadata, "Malformed client metadata")
		return
	}

	client, err := h.provider.RegisterClient(r.Context(), md)
	if err != nil {
		if oauth.ErrorCode(err) == oauth.ErrorCodeServerError {
			h.logger.ErrorContext(r.Context(), "client registration failed", "error", err)
		}
		common.WriteOAuthError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ClientRegistered()
	}
	common.WriteJSON(w, http.StatusCreated, client)
}
