// Package validation provides request parameter validation for the authorization engine
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// PKCE settings per RFC 7636 section 4.1
const (
	MinVerifierLength = 43
	MaxVerifierLength = 128
)

// Code challenge methods per RFC 7636 section 4.2
const (
	ChallengeMethodS256  = "S256"
	ChallengeMethodPlain = "plain"
)

var (
	// scope-token = 1*( %x21 / %x23-5B / %x5D-7E ) per RFC 6749 section 3.3
	scopeTokenRegex = regexp.MustCompile(`^[\x21\x23-\x5B\x5D-\x7E]+$`)

	// unreserved characters per RFC 7636 section 4.1
	verifierRegex = regexp.MustCompile(`^[A-Za-z0-9\-._~]+$`)
)

// ValidationError represents a parameter validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// ValidateRedirectURI checks that a redirect URI is absolute, has no fragment
// and uses https unless it points at a loopback host.
func ValidateRedirectURI(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{Field: "redirect_uri", Value: raw, Message: "must not be empty"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "redirect_uri", Value: raw, Message: "must be a valid URI"}
	}
	if !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "redirect_uri", Value: raw, Message: "must be an absolute URI"}
	}
	if u.Fragment != "" {
		return &ValidationError{Field: "redirect_uri", Value: raw, Message: "must not contain a fragment"}
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return &ValidationError{Field: "redirect_uri", Value: raw, Message: "http is only allowed for loopback hosts"}
	default:
		return &ValidationError{Field: "redirect_uri", Value: raw, Message: "scheme must be https or http"}
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// ValidateScope checks every space-delimited token of a scope string.
// An empty scope is valid.
func ValidateScope(scope string) error {
	for _, token := range strings.Fields(scope) {
		if !scopeTokenRegex.MatchString(token) {
			return &ValidationError{Field: "scope", Value: token, Message: "contains characters outside the scope-token charset"}
		}
	}
	return nil
}

// NormalizeScope collapses whitespace and removes duplicate tokens while
// preserving first-seen order.
func NormalizeScope(scope string) string {
	seen := make(map[string]bool)
	tokens := make([]string, 0)
	for _, token := range strings.Fields(scope) {
		if seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, " ")
}

// ValidateCodeChallenge checks a PKCE challenge and its method.
// An empty challenge means PKCE is not in use and is accepted.
func ValidateCodeChallenge(challenge, method string) error {
	if challenge == "" {
		if method != "" {
			return &ValidationError{Field: "code_challenge_method", Value: method, Message: "requires code_challenge"}
		}
		return nil
	}

	switch method {
	case "", ChallengeMethodPlain, ChallengeMethodS256:
	default:
		return &ValidationError{Field: "code_challenge_method", Value: method, Message: "must be S256 or plain"}
	}

	return validateVerifierSyntax("code_challenge", challenge)
}

// ValidateCodeVerifier checks PKCE verifier syntax per RFC 7636 section 4.1
func ValidateCodeVerifier(verifier string) error {
	return validateVerifierSyntax("code_verifier", verifier)
}

func validateVerifierSyntax(field, value string) error {
	if len(value) < MinVerifierLength || len(value) > MaxVerifierLength {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("length must be between %d and %d characters", MinVerifierLength, MaxVerifierLength),
		}
	}
	if !verifierRegex.MatchString(value) {
		return &ValidationError{Field: field, Value: value, Message: "must use only unreserved characters"}
	}
	return nil
}
