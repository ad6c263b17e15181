package consent

// ScopeDescriptor describes a permission shown on the consent screen
type ScopeDescriptor struct {
	Name        string
	Description string
}

// DefaultCatalog is the scope list displayed to users. It is fixed and does
// not narrow or widen what the client actually requested.
var DefaultCatalog = []ScopeDescriptor{
	{Name: "read_profile", Description: "Read your basic profile information"},
	{Name: "read_data", Description: "Access your stored data"},
	{Name: "write_data", Description: "Create and modify your data"},
}

// ScopeNames returns the names of the catalog entries in order
func ScopeNames(catalog []ScopeDescriptor) []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	return names
}
