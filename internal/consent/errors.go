package consent

import (
	"errors"
	"fmt"
)

// ErrInvalidLogin indicates a decision without a usable round-tripped request
var ErrInvalidLogin = errors.New("invalid login")

// Engine operations reported in EngineError
const (
	OpParseRequest          = "parse_request"
	OpCompleteAuthorization = "complete_authorization"
)

// EngineError wraps a failure returned by the authorization engine
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
