package sql

// Property keys understood by the tracing driver.
const (
	// PropertyUser is the database user. It is recorded as the "db.user" attribute.
	PropertyUser = "user"

	// PropertyPassword is the database password. It is never recorded.
	PropertyPassword = "password"
)

// Properties is the key/value bag passed alongside a connection URL.
// A nil Properties is valid and empty.
type Properties map[string]string

// Get returns the value for key, or "" when absent.
func (p Properties) Get(key string) string {
	if p == nil {
		return ""
	}
	return p[key]
}

// Clone returns a copy of p that can be modified without affecting the caller.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// PropertyInfo describes one connection property a driver understands.
type PropertyInfo struct {
	Name        string
	Value       string
	Description string
	Required    bool
	Choices     []string
}
