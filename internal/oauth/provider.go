package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WilliamSuiself/remote-mcp-local/internal/validation"
)

const (
	// DefaultCodeExpiry is the authorization code lifetime per RFC 6749 section 4.1.2
	DefaultCodeExpiry = 10 * time.Minute

	// DefaultTokenExpiry is the access token lifetime
	DefaultTokenExpiry = time.Hour

	// MinSecretLength is the minimum signing secret length in bytes
	MinSecretLength = 32
)

// Provider is the authorization engine. It parses authorization requests,
// records grants, and issues codes and access tokens.
type Provider struct {
	store       Store
	issuer      string
	secret      []byte
	codeExpiry  time.Duration
	tokenExpiry time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

var _ Engine = (*Provider)(nil)

// NewProvider creates a provider issuing tokens for issuer, signed with secret
func NewProvider(store Store, issuer string, secret []byte, opts ...Option) (*Provider, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}

	p := &Provider{
		store:       store,
		issuer:      strings.TrimSuffix(issuer, "/"),
		secret:      secret,
		codeExpiry:  DefaultCodeExpiry,
		tokenExpiry: DefaultTokenExpiry,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p, nil
}

// Issuer returns the issuer identifier
func (p *Provider) Issuer() string {
	return p.issuer
}

// CheckHealth verifies the storage backend
func (p *Provider) CheckHealth(ctx context.Context) error {
	return p.store.CheckHealth(ctx)
}

// ParseRequest validates an authorization request per RFC 6749 section 4.1.1
// and RFC 7636 section 4.3.
func (p *Provider) ParseRequest(ctx context.Context, r *http.Request) (*AuthRequest, error) {
	q := r.URL.Query()

	responseType := q.Get("response_type")
	if responseType != ResponseTypeCode {
		return nil, NewError(ErrorCodeUnsupportedResponseType, "response_type must be code")
	}

	clientID := q.Get("client_id")
	if clientID == "" {
		return nil, NewError(ErrorCodeInvalidRequest, "client_id is required")
	}

	client, err := p.lookupClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	redirectURI := q.Get("redirect_uri")
	if redirectURI == "" {
		// Omitting redirect_uri is only unambiguous with a single registration
		if len(client.RedirectURIs) != 1 {
			return nil, NewError(ErrorCodeInvalidRequest, "redirect_uri is required")
		}
		redirectURI = client.RedirectURIs[0]
	} else if !client.AllowsRedirect(redirectURI) {
		return nil, NewError(ErrorCodeInvalidRequest, "redirect_uri is not registered for this client")
	}

	scope := validation.NormalizeScope(q.Get("scope"))
	if err := validation.ValidateScope(scope); err != nil {
		return nil, &Error{Code: ErrorCodeInvalidScope, Description: "malformed scope", Err: err}
	}

	challenge := q.Get("code_challenge")
	method := q.Get("code_challenge_method")
	if err := validation.ValidateCodeChallenge(challenge, method); err != nil {
		return nil, &Error{Code: ErrorCodeInvalidRequest, Description: "malformed PKCE parameters", Err: err}
	}
	if challenge != "" && method == "" {
		method = validation.ChallengeMethodPlain
	}

	return &AuthRequest{
		ResponseType:        responseType,
		ClientID:            client.ClientID,
		ClientName:          client.ClientName,
		RedirectURI:         redirectURI,
		Scope:               scope,
		State:               q.Get("state"),
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		RedirectURIProvided: q.Get("redirect_uri") != "",
	}, nil
}

// CompleteAuthorization records a grant for an approved request and returns
// the client redirect carrying a fresh authorization code. The request has
// travelled through the browser, so client and redirect URI are checked again.
func (p *Provider) CompleteAuthorization(ctx context.Context, opts CompleteOptions) (*CompleteResult, error) {
	req := opts.Request
	if req == nil {
		return nil, NewError(ErrorCodeInvalidRequest, "authorization request is required")
	}
	if opts.UserID == "" {
		return nil, NewError(ErrorCodeInvalidRequest, "user id is required")
	}
	if req.ResponseType != ResponseTypeCode {
		return nil, NewError(ErrorCodeUnsupportedResponseType, "response_type must be code")
	}

	client, err := p.lookupClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.AllowsRedirect(req.RedirectURI) {
		return nil, NewError(ErrorCodeInvalidRequest, "redirect_uri is not registered for this client")
	}

	scope := validation.NormalizeScope(opts.Scope)
	if err := validation.ValidateScope(scope); err != nil {
		return nil, &Error{Code: ErrorCodeInvalidScope, Description: "malformed scope", Err: err}
	}
	if err := validation.ValidateCodeChallenge(req.CodeChallenge, req.CodeChallengeMethod); err != nil {
		return nil, &Error{Code: ErrorCodeInvalidRequest, Description: "malformed PKCE parameters", Err: err}
	}

	// A grant only has to outlive the code and the last token minted from it
	grantTTL := p.codeExpiry + p.tokenExpiry
	now := p.now()
	grant := &Grant{
		ID:        uuid.NewString(),
		ClientID:  client.ClientID,
		UserID:    opts.UserID,
		Scope:     scope,
		Metadata:  opts.Metadata,
		Props:     opts.Props,
		CreatedAt: now,
		ExpiresAt: now.Add(grantTTL),
	}

	code, err := generateSecureCode(codeBytes)
	if err != nil {
		return nil, serverError("generating authorization code", err)
	}

	// The code goes first: a code whose grant failed to save is unredeemable,
	// while a grant without a code would never be reached
	if err := p.store.SaveAuthCode(ctx, &AuthCode{
		Code:                code,
		GrantID:             grant.ID,
		ClientID:            client.ClientID,
		RedirectURI:         req.RedirectURI,
		RedirectURIProvided: req.RedirectURIProvided,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		ExpiresAt:           now.Add(p.codeExpiry),
	}, p.codeExpiry); err != nil {
		return nil, serverError("saving authorization code", err)
	}
	if err := p.store.SaveGrant(ctx, grant, grantTTL); err != nil {
		return nil, serverError("saving grant", err)
	}

	redirect, err := url.Parse(req.RedirectURI)
	if err != nil {
		return nil, &Error{Code: ErrorCodeInvalidRequest, Description: "malformed redirect_uri", Err: err}
	}
	params := redirect.Query()
	params.Set("code", code)
	if req.State != "" {
		params.Set("state", req.State)
	}
	redirect.RawQuery = params.Encode()

	p.logger.InfoContext(ctx, "authorization granted",
		"client_id", client.ClientID,
		"grant_id", grant.ID,
		"scope", scope,
	)

	return &CompleteResult{RedirectTo: redirect.String()}, nil
}

// RegisterClient performs dynamic client registration per RFC 7591 section 3
func (p *Provider) RegisterClient(ctx context.Context, md ClientMetadata) (*RegisteredClient, error) {
	if len(md.RedirectURIs) == 0 {
		return nil, NewError(ErrorCodeInvalidRedirectURI, "at least one redirect_uri is required")
	}
	for _, uri := range md.RedirectURIs {
		if err := validation.ValidateRedirectURI(uri); err != nil {
			return nil, &Error{Code: ErrorCodeInvalidRedirectURI, Description: "unacceptable redirect_uri", Err: err}
		}
	}

	method := md.TokenEndpointAuthMethod
	switch method {
	case "":
		method = AuthMethodClientSecretBasic
	case AuthMethodNone, AuthMethodClientSecretBasic, AuthMethodClientSecretPost:
	default:
		return nil, NewError(ErrorCodeInvalidClientMetadata, "unsupported token_endpoint_auth_method")
	}

	now := p.now()
	client := &Client{
		ClientID:                uuid.NewString(),
		ClientName:              strings.TrimSpace(md.ClientName),
		RedirectURIs:            md.RedirectURIs,
		TokenEndpointAuthMethod: method,
		CreatedAt:               now,
	}

	var secret string
	if !client.Public() {
		var err error
		if secret, err = generateSecureCode(secretBytes); err != nil {
			return nil, serverError("generating client secret", err)
		}
		client.ClientSecretHash = hashSecret(secret)
	}

	if err := p.store.SaveClient(ctx, client); err != nil {
		return nil, serverError("saving client", err)
	}

	p.logger.InfoContext(ctx, "client registered",
		"client_id", client.ClientID,
		"client_name", client.ClientName,
		"auth_method", method,
	)

	return &RegisteredClient{
		ClientID:                client.ClientID,
		ClientSecret:            secret,
		ClientIDIssuedAt:        now.Unix(),
		ClientName:              client.ClientName,
		RedirectURIs:            client.RedirectURIs,
		TokenEndpointAuthMethod: method,
	}, nil
}

func (p *Provider) lookupClient(ctx context.Context, clientID string) (*Client, error) {
	client, err := p.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, serverError("loading client", err)
	}
	if client == nil {
		return nil, NewError(ErrorCodeInvalidClient, "unknown client")
	}
	return client, nil
}
