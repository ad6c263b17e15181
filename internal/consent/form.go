// Package consent implements the authorization consent flow: decoding the
// user's decision, choosing which consent screen to show, and forwarding
// approvals to the authorization engine.
package consent

import (
	"encoding/json"
	"net/url"

	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
)

// Form field names shared with the consent screens
const (
	FieldAction      = "action"
	FieldRequestInfo = "oauth_req_info"
	FieldEmail       = "email"
	FieldPassword    = "password"
)

// Action identifies which consent screen produced a decision
type Action string

const (
	// ActionApprove is posted by the screen shown to authenticated users
	ActionApprove Action = "approve"

	// ActionLoginApprove is posted by the screen that also collects credentials
	ActionLoginApprove Action = "login_approve"
)

// DecisionForm is a decoded consent submission
type DecisionForm struct {
	Action Action

	// PriorRequest is the round-tripped authorization request, nil when the
	// field was missing or could not be parsed
	PriorRequest *oauth.AuthRequest

	Email    string
	Password string
}

// DecodeForm reads a consent submission. Missing fields decode as empty
// strings and it never fails.
func DecodeForm(form url.Values) DecisionForm {
	return DecisionForm{
		Action:       Action(form.Get(FieldAction)),
		PriorRequest: decodeRequest(form.Get(FieldRequestInfo)),
		Email:        form.Get(FieldEmail),
		Password:     form.Get(FieldPassword),
	}
}

func decodeRequest(raw string) *oauth.AuthRequest {
	if raw == "" {
		return nil
	}
	var req *oauth.AuthRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil
	}
	// "null" leaves req nil
	return req
}

// EncodeRequest serializes an authorization request for the hidden form field
func EncodeRequest(req *oauth.AuthRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
