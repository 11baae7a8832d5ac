package cdnheaders

import "time"

// Rule maps a wildcard pattern to a cache duration. UseDefault marks a
// rule declared without one; it then gets Config.DefaultDuration.
type Rule struct {
	Pattern    string
	Duration   time.Duration
	UseDefault bool
}

// Header is a single operator supplied response header.
type Header struct {
	Name  string
	Value string
}

// LoaderRoutes selects the responses that receive the CSRF loader script.
// In auto mode the script follows token removal, otherwise it is injected
// into routes matching one of Routes.
type LoaderRoutes struct {
	Auto   bool
	Routes []string
}

// Config is the process wide policy. It is read-only once handed to New.
type Config struct {
	Enabled           bool
	SkipAuthenticated bool
	RemoveCookies     bool
	RemoveVaryCookie  bool
	RemoveCSRFTokens  bool
	InjectCSRFLoader  bool
	SurrogateControl  bool
	Logging           bool

	DefaultDuration time.Duration

	// RouteRules and PathRules keep declaration order; the first match wins.
	RouteRules     []Rule
	PathRules      []Rule
	ExcludedRoutes []string
	CustomHeaders  []Header

	// Zero means the directive is omitted.
	StaleWhileRevalidate time.Duration
	StaleIfError         time.Duration

	CSRFLoaderRoutes LoaderRoutes
	CSRFEndpointPath string
}

// DefaultCSRFEndpoint is where the loader script fetches a fresh token.
const DefaultCSRFEndpoint = "/cdn-headers/csrf-token"

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		SkipAuthenticated: true,
		RemoveCookies:     true,
		RemoveVaryCookie:  true,
		RemoveCSRFTokens:  true,
		InjectCSRFLoader:  true,
		DefaultDuration:   time.Hour,
		CSRFLoaderRoutes:  LoaderRoutes{Auto: true},
		CSRFEndpointPath:  DefaultCSRFEndpoint,
	}
}

// seconds renders a duration as whole seconds for header values.
func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
