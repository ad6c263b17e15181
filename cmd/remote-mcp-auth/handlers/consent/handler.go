// Package consent serves the authorization entry point and the decision endpoint
package consent

import (
	"log/slog"

	"github.com/WilliamSuiself/remote-mcp-local/internal/consent"
	"github.com/WilliamSuiself/remote-mcp-local/internal/templates"
)

// Recorder receives consent flow metrics
type Recorder interface {
	ScreenShown(state string)
	DecisionMade(outcome string)
	EngineFailed(op string)
}

type nopRecorder struct{}

func (nopRecorder) ScreenShown(string)  {}
func (nopRecorder) DecisionMade(string) {}
func (nopRecorder) EngineFailed(string) {}

// Handler drives the consent screens
type Handler struct {
	orchestrator *consent.Orchestrator
	templates    *templates.Templates
	metrics      Recorder
	logger       *slog.Logger
}

// Config contains handler configuration
type Config struct {
	Orchestrator *consent.Orchestrator
	Templates    *templates.Templates
	Metrics      Recorder
	Logger       *slog.Logger
}

// New creates a new consent handler
func New(cfg Config) *Handler {
	h := &Handler{
		orchestrator: cfg.Orchestrator,
		templates:    cfg.Templates,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
	if h.metrics == nil {
		h.metrics = nopRecorder{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}
