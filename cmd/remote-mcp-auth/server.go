package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/WilliamSuiself/remote-mcp-local/cmd/remote-mcp-auth/handlers/common"
	"github.com/WilliamSuiself/remote-mcp-local/cmd/remote-mcp-auth/handlers/consent"
	"github.com/WilliamSuiself/remote-mcp-local/cmd/remote-mcp-auth/handlers/health"
	"github.com/WilliamSuiself/remote-mcp-local/cmd/remote-mcp-auth/handlers/register"
	"github.com/WilliamSuiself/remote-mcp-local/cmd/remote-mcp-auth/handlers/token"
	consentflow "github.com/WilliamSuiself/remote-mcp-local/internal/consent"
	"github.com/WilliamSuiself/remote-mcp-local/internal/mcpserver"
	"github.com/WilliamSuiself/remote-mcp-local/internal/metrics"
	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
	"github.com/WilliamSuiself/remote-mcp-local/internal/templates"
)

const (
	pathMCP                   = "/mcp"
	pathAuthServerMetadata    = "/.well-known/oauth-authorization-server"
	pathProtectedResourceMeta = "/.well-known/oauth-protected-resource"
)

// ProtectedResourceMetadata describes the MCP endpoint per RFC 9728 section 2
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	ResourceName           string   `json:"resource_name,omitempty"`
}

type server struct {
	cfg       Config
	router    *chi.Mux
	provider  *oauth.Provider
	mcp       *mcp.Server
	templates *templates.Templates
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func newServer(cfg Config, provider *oauth.Provider, mcpServer *mcp.Server, m *metrics.Metrics, logger *slog.Logger) (*server, error) {
	tmpls, err := templates.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	srv := &server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		provider:  provider,
		mcp:       mcpServer,
		templates: tmpls,
		metrics:   m,
		logger:    logger,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(requestLogger(logger))
	srv.router.Use(middleware.Recoverer)

	srv.routes()

	return srv, nil
}

func (s *server) routes() {
	authenticator := consentflow.NeverAuthenticated
	if s.cfg.AssumeAuthenticated {
		authenticator = consentflow.AlwaysAuthenticated
	}
	orchestrator := consentflow.NewOrchestrator(s.provider,
		consentflow.WithAuthenticator(authenticator),
		consentflow.WithLogger(s.logger),
	)
	consentHandler := consent.New(consent.Config{
		Orchestrator: orchestrator,
		Templates:    s.templates,
		Metrics:      s.metrics,
		Logger:       s.logger,
	})

	s.router.NotFound(s.handleNotFound)

	s.router.Get("/", s.handleHome)
	s.router.Get("/health", health.New(map[string]health.Checker{
		"store": s.provider,
	}).WithVersion(Version).ServeHTTP)
	s.router.Handle("/metrics", s.metrics.Handler())

	// Consent front end
	s.router.Get("/authorize", consentHandler.HandleAuthorize)
	s.router.Post("/approve", consentHandler.HandleApprove)

	// OAuth protocol endpoints
	s.router.Method(http.MethodPost, "/token", token.New(token.Config{
		Provider: s.provider,
		Metrics:  s.metrics,
		Logger:   s.logger,
	}))
	s.router.Method(http.MethodPost, "/register", register.New(register.Config{
		Provider: s.provider,
		Metrics:  s.metrics,
		Logger:   s.logger,
	}))
	s.router.Get(pathAuthServerMetadata, s.handleAuthServerMetadata)
	s.router.Get(pathProtectedResourceMeta, s.handleProtectedResourceMetadata)

	// MCP tools behind bearer tokens
	s.router.With(requireBearer(s.provider, s.cfg.BaseURL+pathProtectedResourceMeta, s.logger)).
		Handle(pathMCP, mcpserver.Handler(s.mcp))
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := templates.HomeData{
		MCPURL:      s.cfg.BaseURL + pathMCP,
		MetadataURL: s.cfg.BaseURL + pathAuthServerMetadata,
	}
	for _, d := range mcpserver.Descriptions {
		data.Tools = append(data.Tools, templates.Tool{Name: d.Name, Description: d.Description})
	}
	if err := s.templates.RenderHome(w, data); err != nil {
		s.logger.ErrorContext(r.Context(), "rendering home page", "error", err)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}

func (s *server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.RenderError(w, http.StatusNotFound, templates.ErrorData{
		Title:   "Not Found",
		Message: "The page you requested does not exist.",
	}); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *server) handleAuthServerMetadata(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSON(w, http.StatusOK, s.provider.Metadata(consentflow.ScopeNames(consentflow.DefaultCatalog)))
}

func (s *server) handleProtectedResourceMetadata(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSON(w, http.StatusOK, ProtectedResourceMetadata{
		Resource:               s.cfg.BaseURL + pathMCP,
		AuthorizationServers:   []string{s.provider.Issuer()},
		ScopesSupported:        consentflow.ScopeNames(consentflow.DefaultCatalog),
		BearerMethodsSupported: []string{"header"},
		ResourceName:           mcpserver.ServerName,
	})
}
