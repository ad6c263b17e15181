package oauth

import (
	"errors"
	"fmt"
)

// Error codes per RFC 6749 sections 4.1.2.1 and 5.2, and RFC 7591 section 3.2.2
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeInvalidRedirectURI      = "invalid_redirect_uri"
	ErrorCodeInvalidClientMetadata   = "invalid_client_metadata"
	ErrorCodeServerError             = "server_error"
)

var (
	// ErrInvalidToken indicates a malformed, forged or revoked access token
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the access token has expired
	ErrTokenExpired = errors.New("token expired")
)

// Error is a protocol error carrying an OAuth error code
type Error struct {
	Code        string
	Description string
	Err         error
}

// NewError creates a protocol error with the given code and description
func NewError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// serverError wraps a storage or internal failure
func serverError(description string, err error) *Error {
	return &Error{Code: ErrorCodeServerError, Description: description, Err: err}
}

// ErrorCode extracts the OAuth error code from err, defaulting to server_error
func ErrorCode(err error) string {
	var oErr *Error
	if errors.As(err, &oErr) {
		return oErr.Code
	}
	return ErrorCodeServerError
}
