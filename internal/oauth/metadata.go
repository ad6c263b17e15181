package oauth

// ServerMetadata is the authorization server metadata document per RFC 8414 section 2
type ServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

// Metadata describes the provider's endpoints and capabilities
func (p *Provider) Metadata(scopes []string) ServerMetadata {
	return ServerMetadata{
		Issuer:                            p.issuer,
		AuthorizationEndpoint:             p.issuer + "/authorize",
		TokenEndpoint:                     p.issuer + "/token",
		RegistrationEndpoint:              p.issuer + "/register",
		ScopesSupported:                   scopes,
		ResponseTypesSupported:            []string{ResponseTypeCode},
		GrantTypesSupported:               []string{GrantTypeAuthorizationCode},
		TokenEndpointAuthMethodsSupported: []string{AuthMethodNone, AuthMethodClientSecretBasic, AuthMethodClientSecretPost},
		CodeChallengeMethodsSupported:     []string{"plain", "S256"},
	}
}
