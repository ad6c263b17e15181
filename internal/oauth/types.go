// Package oauth implements the authorization engine behind the consent front end:
// request parsing, grant issuance, code exchange and access token validation.
package oauth

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"
)

// ResponseTypeCode is the only response type the engine issues
const ResponseTypeCode = "code"

// GrantTypeAuthorizationCode is the only grant type the token endpoint accepts
const GrantTypeAuthorizationCode = "authorization_code"

// Token endpoint authentication methods per RFC 7591 section 2
const (
	AuthMethodNone              = "none"
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
)

// PropUserEmail is the grant property holding the approving user's email
const PropUserEmail = "userEmail"

// AuthRequest is a parsed authorization request. It is serialized into the
// consent form and returned by the browser, so it carries everything needed
// to resume the flow.
type AuthRequest struct {
	ResponseType        string `json:"response_type"`
	ClientID            string `json:"client_id"`
	ClientName          string `json:"client_name,omitempty"`
	RedirectURI         string `json:"redirect_uri"`
	Scope               string `json:"scope"`
	State               string `json:"state,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`

	// RedirectURIProvided is set when redirect_uri was sent explicitly, which
	// makes it mandatory at the token endpoint (RFC 6749 section 4.1.3)
	RedirectURIProvided bool `json:"redirect_uri_provided,omitempty"`
}

// Scopes returns the requested scope tokens
func (r *AuthRequest) Scopes() []string {
	return strings.Fields(r.Scope)
}

// CompleteOptions carries the approval decision forwarded to the engine
type CompleteOptions struct {
	Request  *AuthRequest
	UserID   string
	Metadata map[string]any
	Scope    string
	Props    map[string]string
}

// CompleteResult holds where the browser must go next
type CompleteResult struct {
	RedirectTo string
}

// Engine is the authorization engine as seen by the consent flow
type Engine interface {
	// ParseRequest validates an incoming authorization request
	ParseRequest(ctx context.Context, r *http.Request) (*AuthRequest, error)

	// CompleteAuthorization records the grant and returns the client redirect
	CompleteAuthorization(ctx context.Context, opts CompleteOptions) (*CompleteResult, error)
}

// Client is a registered OAuth client
type Client struct {
	ClientID                string    `json:"client_id"`
	ClientSecretHash        string    `json:"client_secret_hash,omitempty"`
	ClientName              string    `json:"client_name,omitempty"`
	RedirectURIs            []string  `json:"redirect_uris"`
	TokenEndpointAuthMethod string    `json:"token_endpoint_auth_method"`
	CreatedAt               time.Time `json:"created_at"`
}

// AllowsRedirect reports whether uri exactly matches a registered redirect URI
func (c *Client) AllowsRedirect(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// Public reports whether the client authenticates without a secret
func (c *Client) Public() bool {
	return c.TokenEndpointAuthMethod == AuthMethodNone
}

// Grant records a user's approval for a client
type Grant struct {
	ID        string            `json:"id"`
	ClientID  string            `json:"client_id"`
	UserID    string            `json:"user_id"`
	Scope     string            `json:"scope"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Props     map[string]string `json:"props,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// AuthCode is a single-use authorization code bound to a grant
type AuthCode struct {
	Code                string    `json:"-"`
	GrantID             string    `json:"grant_id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	RedirectURIProvided bool      `json:"redirect_uri_provided,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// TokenRequest is an access token request per RFC 6749 section 4.1.3
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
}

// Token represents an issued access token response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// TokenInfo contains information about a validated access token
type TokenInfo struct {
	Subject   string    `json:"sub"`
	ClientID  string    `json:"client_id"`
	GrantID   string    `json:"grant_id"`
	Email     string    `json:"email,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	ExpiresAt time.Time `json:"exp"`
	IssuedAt  time.Time `json:"iat"`
	Issuer    string    `json:"iss"`
}

// ClientMetadata is a dynamic client registration request per RFC 7591
type ClientMetadata struct {
	RedirectURIs            []string `json:"redirect_uris"`
	ClientName              string   `json:"client_name,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
}

// RegisteredClient is the registration response; ClientSecret is only
// returned here and never stored in plain text.
type RegisteredClient struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}
