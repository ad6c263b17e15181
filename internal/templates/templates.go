// Package templates renders the HTML pages of the authorization front end
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/WilliamSuiself/remote-mcp-local/internal/consent"
	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
)

//go:embed html/*.html
var content embed.FS

// UnknownClientName is shown when the client did not register a name
const UnknownClientName = "unknown application"

// RedirectDelayMillis is how long the approved page waits before navigating
const RedirectDelayMillis = 2000

// TemplateError wraps a failure to render or write a page
type TemplateError struct {
	Message string
	Cause   error
	Code    int
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// Templates manages the HTML templates
type Templates struct {
	consent  *template.Template
	rejected *template.Template
	approved *template.Template
	home     *template.Template
	error    *template.Template
}

// LoadTemplates loads and parses all HTML templates
func LoadTemplates() (*Templates, error) {
	t := &Templates{}
	var err error

	if t.consent, err = parsePage("html/consent.html"); err != nil {
		return nil, err
	}
	if t.rejected, err = parsePage("html/rejected.html"); err != nil {
		return nil, err
	}
	if t.approved, err = parsePage("html/approved.html"); err != nil {
		return nil, err
	}
	if t.home, err = parsePage("html/home.html"); err != nil {
		return nil, err
	}
	if t.error, err = parsePage("html/error.html"); err != nil {
		return nil, err
	}

	return t, nil
}

func parsePage(name string) (*template.Template, error) {
	tmpl, err := template.ParseFS(content, name, "html/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return tmpl, nil
}

// ConsentData holds data for the consent screens
type ConsentData struct {
	Scopes  []consent.ScopeDescriptor
	Request *oauth.AuthRequest
}

// consentView is what the consent template sees
type consentView struct {
	ClientName    string
	Scopes        []consent.ScopeDescriptor
	Action        consent.Action
	RequestInfo   string
	LoginRequired bool
}

func newConsentView(data ConsentData, action consent.Action) (consentView, error) {
	info, err := consent.EncodeRequest(data.Request)
	if err != nil {
		return consentView{}, &TemplateError{Message: "failed to encode request", Cause: err, Code: http.StatusInternalServerError}
	}
	name := UnknownClientName
	if data.Request != nil && data.Request.ClientName != "" {
		name = data.Request.ClientName
	}
	return consentView{
		ClientName:    name,
		Scopes:        data.Scopes,
		Action:        action,
		RequestInfo:   info,
		LoginRequired: action == consent.ActionLoginApprove,
	}, nil
}

// RenderAuthenticatedConsent renders the consent screen for a signed-in user
func (t *Templates) RenderAuthenticatedConsent(w http.ResponseWriter, data ConsentData) error {
	view, err := newConsentView(data, consent.ActionApprove)
	if err != nil {
		return err
	}
	return t.render(w, http.StatusOK, t.consent, view)
}

// RenderUnauthenticatedConsent renders the consent screen that also asks for credentials
func (t *Templates) RenderUnauthenticatedConsent(w http.ResponseWriter, data ConsentData) error {
	view, err := newConsentView(data, consent.ActionLoginApprove)
	if err != nil {
		return err
	}
	return t.render(w, http.StatusOK, t.consent, view)
}

// RejectedData holds data for the rejected page
type RejectedData struct {
	HomeURL string
}

// RenderRejected renders the rejected outcome. It is a normal page, not an error.
func (t *Templates) RenderRejected(w http.ResponseWriter, data RejectedData) error {
	return t.render(w, http.StatusOK, t.rejected, data)
}

// ApprovedData holds data for the approved page
type ApprovedData struct {
	RedirectURL string
}

// RenderApproved renders the approved outcome with a link to the client
// and a timed navigation to the same target
func (t *Templates) RenderApproved(w http.ResponseWriter, data ApprovedData) error {
	return t.render(w, http.StatusOK, t.approved, struct {
		ApprovedData
		DelayMillis int
	}{data, RedirectDelayMillis})
}

// Tool describes a capability listed on the home page
type Tool struct {
	Name        string
	Description string
}

// HomeData holds data for the landing page
type HomeData struct {
	MCPURL      string
	MetadataURL string
	Tools       []Tool
}

// RenderHome renders the landing page
func (t *Templates) RenderHome(w http.ResponseWriter, data HomeData) error {
	return t.render(w, http.StatusOK, t.home, data)
}

// ErrorData holds data for the error page
type ErrorData struct {
	Title   string
	Message string
}

// RenderError renders the error page with the given status
func (t *Templates) RenderError(w http.ResponseWriter, status int, data ErrorData) error {
	return t.render(w, status, t.error, data)
}

// render executes into a buffer first so nothing reaches w when execution fails
func (t *Templates) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return &TemplateError{Message: "failed to render template", Cause: err, Code: http.StatusInternalServerError}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return &TemplateError{Message: "failed to write response", Cause: err, Code: http.StatusInternalServerError}
	}
	return nil
}
