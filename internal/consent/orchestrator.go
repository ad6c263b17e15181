package consent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
)

// State is a step of the consent flow
type State string

const (
	StateStart                          State = "start"
	StateAwaitingConsentAuthenticated   State = "awaiting_consent_authenticated"
	StateAwaitingConsentUnauthenticated State = "awaiting_consent_unauthenticated"
	StateRejected                       State = "rejected"
	StateApproved                       State = "approved"
)

const (
	// AnonymousUserID identifies approvals submitted without an email
	AnonymousUserID = "anonymous@example.com"

	// GrantLabel is the display label attached to every grant
	GrantLabel = "Test User"

	// DefaultHomeURL is where rejected users are sent back to
	DefaultHomeURL = "/"
)

// Authenticator reports whether the caller already has a session.
// How that is decided is up to the implementation.
type Authenticator interface {
	Authenticated(r *http.Request) bool
}

// AuthenticatorFunc adapts a function to Authenticator
type AuthenticatorFunc func(r *http.Request) bool

func (f AuthenticatorFunc) Authenticated(r *http.Request) bool { return f(r) }

// AlwaysAuthenticated treats every caller as signed in
var AlwaysAuthenticated Authenticator = AuthenticatorFunc(func(*http.Request) bool { return true })

// NeverAuthenticated asks every caller for credentials
var NeverAuthenticated Authenticator = AuthenticatorFunc(func(*http.Request) bool { return false })

// CredentialVerifier checks login credentials submitted with a consent decision
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (bool, error)
}

// CredentialVerifierFunc adapts a function to CredentialVerifier
type CredentialVerifierFunc func(ctx context.Context, email, password string) (bool, error)

func (f CredentialVerifierFunc) Verify(ctx context.Context, email, password string) (bool, error) {
	return f(ctx, email, password)
}

// AcceptAll accepts any credentials
var AcceptAll CredentialVerifier = CredentialVerifierFunc(func(context.Context, string, string) (bool, error) {
	return true, nil
})

// Screen is the consent screen selected for an incoming request
type Screen struct {
	State   State
	Scopes  []ScopeDescriptor
	Request *oauth.AuthRequest
}

// Outcome is the terminal result of a consent decision
type Outcome struct {
	State       State
	RedirectURL string
	HomeURL     string
}

// Orchestrator drives a single authorization request from the incoming
// visit to an approved or rejected decision. It keeps no state between
// calls; the pending request travels through the browser.
type Orchestrator struct {
	engine        oauth.Engine
	authenticator Authenticator
	verifier      CredentialVerifier
	catalog       []ScopeDescriptor
	homeURL       string
	logger        *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithAuthenticator sets the source of the authentication signal
func WithAuthenticator(a Authenticator) Option {
	return func(o *Orchestrator) {
		o.authenticator = a
	}
}

// WithCredentialVerifier sets the login check used by login_approve decisions
func WithCredentialVerifier(v CredentialVerifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// WithCatalog replaces the displayed scope catalog
func WithCatalog(catalog []ScopeDescriptor) Option {
	return func(o *Orchestrator) {
		o.catalog = catalog
	}
}

// WithHomeURL sets the navigation target of the rejected screen
func WithHomeURL(u string) Option {
	return func(o *Orchestrator) {
		o.homeURL = u
	}
}

// WithLogger sets the orchestrator logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator backed by engine
func NewOrchestrator(engine oauth.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:        engine,
		authenticator: AlwaysAuthenticated,
		verifier:      AcceptAll,
		catalog:       DefaultCatalog,
		homeURL:       DefaultHomeURL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Catalog returns the displayed scope catalog
func (o *Orchestrator) Catalog() []ScopeDescriptor {
	return o.catalog
}

// Begin parses an incoming authorization request and selects the consent
// screen. Engine failures are returned as *EngineError.
func (o *Orchestrator) Begin(ctx context.Context, r *http.Request) (*Screen, error) {
	req, err := o.engine.ParseRequest(ctx, r)
	if err != nil {
		return nil, &EngineError{Op: OpParseRequest, Err: err}
	}

	state := StateAwaitingConsentUnauthenticated
	if o.authenticator.Authenticated(r) {
		state = StateAwaitingConsentAuthenticated
	}

	o.logger.DebugContext(ctx, "consent screen selected",
		"client_id", req.ClientID,
		"state", string(state),
	)

	return &Screen{
		State:   state,
		Scopes:  o.catalog,
		Request: req,
	}, nil
}

// Decide applies a consent decision. A form without a prior request yields
// ErrInvalidLogin, failed credentials yield a rejected outcome, and engine
// failures are returned as *EngineError.
func (o *Orchestrator) Decide(ctx context.Context, form DecisionForm) (*Outcome, error) {
	if form.PriorRequest == nil {
		return nil, ErrInvalidLogin
	}

	// The action field is trusted as posted by the rendered screen
	if form.Action == ActionLoginApprove {
		ok, err := o.verifier.Verify(ctx, form.Email, form.Password)
		if err != nil {
			return nil, fmt.Errorf("verifying credentials: %w", err)
		}
		if !ok {
			o.logger.InfoContext(ctx, "login rejected", "client_id", form.PriorRequest.ClientID)
			return &Outcome{State: StateRejected, HomeURL: o.homeURL}, nil
		}
	}

	userID := form.Email
	if userID == "" {
		userID = AnonymousUserID
	}

	res, err := o.engine.CompleteAuthorization(ctx, oauth.CompleteOptions{
		Request:  form.PriorRequest,
		UserID:   userID,
		Metadata: map[string]any{"label": GrantLabel},
		Scope:    form.PriorRequest.Scope,
		Props:    map[string]string{oauth.PropUserEmail: userID},
	})
	if err != nil {
		return nil, &EngineError{Op: OpCompleteAuthorization, Err: err}
	}

	return &Outcome{State: StateApproved, RedirectURL: res.RedirectTo}, nil
}
