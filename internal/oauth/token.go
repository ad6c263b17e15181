package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/WilliamSuiself/remote-mcp-local/internal/validation"
)

// TokenTypeBearer is the token_type of issued access tokens
const TokenTypeBearer = "bearer"

// accessClaims are the claims carried by an access token
type accessClaims struct {
	ClientID string `json:"client_id"`
	GrantID  string `json:"grant_id"`
	Scope    string `json:"scope,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ExchangeCode redeems an authorization code per RFC 6749 section 4.1.3,
// verifying PKCE per RFC 7636 section 4.6.
func (p *Provider) ExchangeCode(ctx context.Context, req TokenRequest) (*Token, error) {
	if req.GrantType != GrantTypeAuthorizationCode {
		return nil, NewError(ErrorCodeUnsupportedGrantType, "grant_type must be authorization_code")
	}
	if req.Code == "" {
		return nil, NewError(ErrorCodeInvalidRequest, "code is required")
	}
	if req.ClientID == "" {
		return nil, NewError(ErrorCodeInvalidRequest, "client_id is required")
	}

	client, err := p.store.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, serverError("loading client", err)
	}
	if client == nil || !p.authenticateClient(client, req.ClientSecret) {
		return nil, NewError(ErrorCodeInvalidClient, "client authentication failed")
	}

	// Codes are keyed by client, so only the client they were issued to can
	// consume them. Consumption precedes the remaining checks so a code is
	// never redeemable twice.
	code, err := p.store.ConsumeAuthCode(ctx, client.ClientID, req.Code)
	if err != nil {
		return nil, serverError("consuming authorization code", err)
	}
	if code == nil {
		return nil, NewError(ErrorCodeInvalidGrant, "unknown or already used authorization code")
	}
	if p.now().After(code.ExpiresAt) {
		return nil, NewError(ErrorCodeInvalidGrant, "authorization code expired")
	}
	if code.ClientID != client.ClientID {
		return nil, NewError(ErrorCodeInvalidGrant, "authorization code was issued to another client")
	}
	if (code.RedirectURIProvided || req.RedirectURI != "") && req.RedirectURI != code.RedirectURI {
		return nil, NewError(ErrorCodeInvalidGrant, "redirect_uri does not match the authorization request")
	}
	if err := verifyPKCE(code, req.CodeVerifier); err != nil {
		return nil, err
	}

	grant, err := p.store.GetGrant(ctx, code.GrantID)
	if err != nil {
		return nil, serverError("loading grant", err)
	}
	if grant == nil || p.now().After(grant.ExpiresAt) {
		return nil, NewError(ErrorCodeInvalidGrant, "grant has been revoked")
	}

	signed, err := p.signAccessToken(grant)
	if err != nil {
		return nil, serverError("signing access token", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int(p.tokenExpiry.Seconds()),
		Scope:       grant.Scope,
	}, nil
}

// ValidateToken verifies an access token and that its grant still exists
func (p *Provider) ValidateToken(ctx context.Context, raw string) (*TokenInfo, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.issuer),
		jwt.WithTimeFunc(p.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	grant, err := p.store.GetGrant(ctx, claims.GrantID)
	if err != nil {
		return nil, fmt.Errorf("loading grant: %w", err)
	}
	if grant == nil {
		return nil, ErrInvalidToken
	}

	info := &TokenInfo{
		Subject:  claims.Subject,
		ClientID: claims.ClientID,
		GrantID:  claims.GrantID,
		Email:    claims.Email,
		Scope:    claims.Scope,
		Issuer:   claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}

func (p *Provider) signAccessToken(grant *Grant) (string, error) {
	now := p.now()
	claims := accessClaims{
		ClientID: grant.ClientID,
		GrantID:  grant.ID,
		Scope:    grant.Scope,
		Email:    grant.Props[PropUserEmail],
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   grant.UserID,
			Audience:  jwt.ClaimStrings{p.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenExpiry)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *Provider) authenticateClient(client *Client, secret string) bool {
	if client.Public() {
		return true
	}
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(client.ClientSecretHash)) == 1
}

func verifyPKCE(code *AuthCode, verifier string) error {
	if code.CodeChallenge == "" {
		return nil
	}
	if err := validation.ValidateCodeVerifier(verifier); err != nil {
		return &Error{Code: ErrorCodeInvalidGrant, Description: "invalid code_verifier", Err: err}
	}

	computed := verifier
	if code.CodeChallengeMethod == validation.ChallengeMethodS256 {
		computed = oauth2.S256ChallengeFromVerifier(verifier)
	}
	if subtle.ConstantTimeCompare([]byte(computed), []byte(code.CodeChallenge)) != 1 {
		return NewError(ErrorCodeInvalidGrant, "code_verifier does not match code_challenge")
	}
	return nil
}
