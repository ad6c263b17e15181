package oauth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// authorize runs the authorization half of the flow and returns the issued code
func authorize(t *testing.T, p *Provider, req *AuthRequest, email string) string {
	t.Helper()
	res, err := p.CompleteAuthorization(context.Background(), CompleteOptions{
		Request:  req,
		UserID:   email,
		Metadata: map[string]any{"label": "Test User"},
		Scope:    req.Scope,
		Props:    map[string]string{PropUserEmail: email},
	})
	if err != nil {
		t.Fatalf("CompleteAuthorization() error = %v", err)
	}
	u, err := url.Parse(res.RedirectTo)
	if err != nil {
		t.Fatalf("parsing redirect: %v", err)
	}
	return u.Query().Get("code")
}

func TestProvider_ExchangeCode_PKCE(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newTestProvider(t)
	seedClient(t, store, &Client{
		ClientID:                "inspector",
		RedirectURIs:            []string{"http://localhost:6274/cb"},
		TokenEndpointAuthMethod: AuthMethodNone,
	})

	verifier := oauth2.GenerateVerifier()
	req := &AuthRequest{
		ResponseType:        ResponseTypeCode,
		ClientID:            "inspector",
		RedirectURI:         "http://localhost:6274/cb",
		Scope:               "read_profile read_data",
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: "S256",
	}

	tests := []struct {
		name     string
		modify   func(*TokenRequest)
		wantCode string
	}{
		{name: "valid verifier"},
		{
			name:     "wrong verifier",
			modify:   func(tr *TokenRequest) { tr.CodeVerifier = oauth2.GenerateVerifier() },
			wantCode: ErrorCodeInvalidGrant,
		},
		{
			name:     "missing verifier",
			modify:   func(tr *TokenRequest) { tr.CodeVerifier = "" },
			wantCode: ErrorCodeInvalidGrant,
		},
		{
			name:     "redirect mismatch",
			modify:   func(tr *TokenRequest) { tr.RedirectURI = "http://localhost:9999/cb" },
			wantCode: ErrorCodeInvalidGrant,
		},
		{
			name:     "unknown client",
			modify:   func(tr *TokenRequest) { tr.ClientID = "ghost" },
			wantCode: ErrorCodeInvalidClient,
		},
		{
			name:     "wrong grant type",
			modify:   func(tr *TokenRequest) { tr.GrantType = "client_credentials" },
			wantCode: ErrorCodeUnsupportedGrantType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := TokenRequest{
				GrantType:    GrantTypeAuthorizationCode,
				Code:         authorize(t, p, req, "user@example.com"),
				RedirectURI:  req.RedirectURI,
				ClientID:     "inspector",
				CodeVerifier: verifier,
			}
			if tt.modify != nil {
				tt.modify(&tr)
			}

			tok, err := p.ExchangeCode(ctx, tr)
			if tt.wantCode != "" {
				if code := ErrorCode(err); code != tt.wantCode {
					t.Errorf("ErrorCode() = %q, want %q (err: %v)", code, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExchangeCode() error = %v", err)
			}
			if tok.TokenType != TokenTypeBearer {
				t.Errorf("TokenType = %q", tok.TokenType)
			}
			if tok.ExpiresIn != 3600 {
				t.Errorf("ExpiresIn = %d, want 3600", tok.ExpiresIn)
			}
			if tok.Scope != "read_profile read_data" {
				t.Errorf("Scope = %q", tok.Scope)
			}

			info, err := p.ValidateToken(ctx, tok.AccessToken)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if info.Subject != "user@example.com" || info.Email != "user@example.com" {
				t.Errorf("identity = %q / %q", info.Subject, info.Email)
			}
			if info.ClientID != "inspector" {
				t.Errorf("ClientID = %q", info.ClientID)
			}
			if info.Issuer != "https://auth.example.com" {
				t.Errorf("Issuer = %q", info.Issuer)
			}
		})
	}
}

func TestProvider_ExchangeCode_SingleUse(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newTestProvider(t)
	seedClient(t, store, &Client{
		ClientID:                "acme",
		RedirectURIs:            []string{"https://acme.example.com/cb"},
		TokenEndpointAuthMethod: AuthMethodNone,
	})
	req := &AuthRequest{ResponseType: ResponseTypeCode, ClientID: "acme", RedirectURI: "https://acme.example.com/cb"}
	tr := TokenRequest{
		GrantType: GrantTypeAuthorizationCode,
		Code:      authorize(t, p, req, "user@example.com"),
		ClientID:  "acme",
	}

	if _, err := p.ExchangeCode(ctx, tr); err != nil {
		t.Fatalf("first ExchangeCode() error = %v", err)
	}
	_, err := p.ExchangeCode(ctx, tr)
	if ErrorCode(err) != ErrorCodeInvalidGrant {
		t.Errorf("replayed ExchangeCode() code = %q, want invalid_grant", ErrorCode(err))
	}
}

func TestProvider_ExchangeCode_OtherClient(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newTestProvider(t)
	for _, id := range []string{"acme", "mallory"} {
		seedClient(t, store, &Client{
			ClientID:                id,
			RedirectURIs:            []string{"https://" + id + ".example.com/cb"},
			TokenEndpointAuthMethod: AuthMethodNone,
		})
	}
	req := &AuthRequest{ResponseType: ResponseTypeCode, ClientID: "acme", RedirectURI: "https://acme.example.com/cb"}
	code := authorize(t, p, req, "user@example.com")

	_, err := p.ExchangeCode(ctx, TokenRequest{GrantType: GrantTypeAuthorizationCode, Code: code, ClientID: "mallory"})
	if ErrorCode(err) != ErrorCodeInvalidGrant {
		t.Errorf("ExchangeCode(mallory) code = %q, want invalid_grant", ErrorCode(err))
	}

	// The attempt must not have burned the code for its owner
	if _, err := p.ExchangeCode(ctx, TokenRequest{GrantType: GrantTypeAuthorizationCode, Code: code, ClientID: "acme"}); err != nil {
		t.Errorf("ExchangeCode(acme) error = %v", err)
	}
}

func TestProvider_ExchangeCode_RedirectURIRequired(t *testing.T) {
	ctx := context.Background()
	p, store, _ := newTestProvider(t)
	seedClient(t, store, &Client{
		ClientID:                "acme",
		RedirectURIs:            []string{"https://acme.example.com/cb"},
		TokenEndpointAuthMethod: AuthMethodNone,
	})

	tests := []struct {
		name        string
		provided    bool
		redirectURI string
		wantCode    string
	}{
		{name: "provided and repeated", provided: true, redirectURI: "https://acme.example.com/cb"},
		{name: "provided and omitted", provided: true, wantCode: ErrorCodeInvalidGrant},
		{name: "defaulted and omitted"},
		{name: "defaulted and repeated", redirectURI: "https://acme.example.com/cb"},
		{name: "defaulted and mismatched", redirectURI: "https://acme.example.com/other", wantCode: ErrorCodeInvalidGrant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &AuthRequest{
				ResponseType:        ResponseTypeCode,
				ClientID:            "acme",
				RedirectURI:         "https://acme.example.com/cb",
				RedirectURIProvided: tt.provided,
			}
			_, err := p.ExchangeCode(ctx, TokenRequest{
				GrantType:   GrantTypeAuthorizationCode,
				Code:        authorize(t, p, req, "user@example.com"),
				RedirectURI: tt.redirectURI,
				ClientID:    "acme",
			})
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("ExchangeCode() error = %v", err)
				}
				return
			}
			if code := ErrorCode(err); code != tt.wantCode {
				t.Errorf("ErrorCode() = %q, want %q (err: %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestProvider_ExchangeCode_Expired(t *testing.T) {
	p, store, clock := newTestProvider(t)
	seedClient(t, store, &Client{
		ClientID:                "acme",
		RedirectURIs:            []string{"https://acme.example.com/cb"},
		TokenEndpointAuthMethod: AuthMethodNone,
	})
	req := &AuthRequest{ResponseType: ResponseTypeCode, ClientID: "acme", RedirectURI: "https://acme.example.com/cb"}
	code := authorize(t, p, req, "user@example.com")

	clock.Advance(6 * time.Minute)

	_, err := p.ExchangeCode(context.Background(), TokenRequest{
		GrantType: GrantTypeAuthorizationCode,
		Code:      code,
		ClientID:  "acme",
	})
	if ErrorCode(err) != ErrorCodeInvalidGrant {
		t.Errorf("ErrorCode() = %q, want invalid_grant", ErrorCode(err))
	}
}

func TestProvider_ExchangeCode_ConfidentialClient(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestProvider(t)
	reg, err := p.RegisterClient(ctx, ClientMetadata{
		RedirectURIs: []string{"https://app.example.com/cb"},
		ClientName:   "App",
	})
	if err != nil {
		t.Fatalf("RegisterClient() error = %v", err)
	}
	req := &AuthRequest{ResponseType: ResponseTypeCode, ClientID: reg.ClientID, RedirectURI: "https://app.example.com/cb"}

	tests := []struct {
		name     string
		secret   string
		wantCode string
	}{
		{name: "correct secret", secret: reg.ClientSecret},
		{name: "wrong secret", secret: strings.Repeat("0", len(reg.ClientSecret)), wantCode: ErrorCodeInvalidClient},
		{name: "no secret", wantCode: ErrorCodeInvalidClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ExchangeCode(ctx, TokenRequest{
				GrantType:    GrantTypeAuthorizationCode,
				Code:         authorize(t, p, req, "user@example.com"),
				ClientID:     reg.ClientID,
				ClientSecret: tt.secret,
			})
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("ExchangeCode() error = %v", err)
				}
				return
			}
			if code := ErrorCode(err); code != tt.wantCode {
				t.Errorf("ErrorCode() = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestProvider_ValidateToken(t *testing.T) {
	ctx := context.Background()
	p, store, clock := newTestProvider(t)
	seedClient(t, store, &Client{
		ClientID:                "acme",
		RedirectURIs:            []string{"https://acme.example.com/cb"},
		TokenEndpointAuthMethod: AuthMethodNone,
	})
	req := &AuthRequest{ResponseType: ResponseTypeCode, ClientID: "acme", RedirectURI: "https://acme.example.com/cb"}

	issue := func(t *testing.T) *Token {
		t.Helper()
		tok, err := p.ExchangeCode(ctx, TokenRequest{
			GrantType: GrantTypeAuthorizationCode,
			Code:      authorize(t, p, req, "user@example.com"),
			ClientID:  "acme",
		})
		if err != nil {
			t.Fatalf("ExchangeCode() error = %v", err)
		}
		return tok
	}

	t.Run("empty", func(t *testing.T) {
		if _, err := p.ValidateToken(ctx, ""); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := p.ValidateToken(ctx, "not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("foreign signature", func(t *testing.T) {
		other, err := NewProvider(store, "https://auth.example.com", []byte("another-secret-that-is-32-bytes!!"), WithClock(clock.Now))
		if err != nil {
			t.Fatalf("NewProvider() error = %v", err)
		}
		tok, err := other.ExchangeCode(ctx, TokenRequest{
			GrantType: GrantTypeAuthorizationCode,
			Code:      authorize(t, other, req, "user@example.com"),
			ClientID:  "acme",
		})
		if err != nil {
			t.Fatalf("ExchangeCode() error = %v", err)
		}
		if _, err := p.ValidateToken(ctx, tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("revoked grant", func(t *testing.T) {
		tok := issue(t)
		info, err := p.ValidateToken(ctx, tok.AccessToken)
		if err != nil {
			t.Fatalf("ValidateToken() error = %v", err)
		}
		store.DeleteGrant(ctx, info.GrantID)
		if _, err := p.ValidateToken(ctx, tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() after revoke error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		tok := issue(t)
		clock.Advance(2 * time.Hour)
		if _, err := p.ValidateToken(ctx, tok.AccessToken); !errors.Is(err, ErrTokenExpired) {
			t.Errorf("ValidateToken() error = %v, want ErrTokenExpired", err)
		}
	})
}
