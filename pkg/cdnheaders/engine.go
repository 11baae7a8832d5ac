// Package cdnheaders decides per response whether it may be stored by an
// edge cache and, if so, rewrites its headers and HTML body so that no
// per-session state leaks into the cached copy.
//
// An Engine is built once from a Config and is safe for concurrent use; all
// per-request state lives in the Request, the Response and the values
// returned between pipeline steps.
package cdnheaders

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MatchKind tells which rule table produced a policy.
type MatchKind string

const (
	MatchExactRoute   MatchKind = "route"
	MatchRoutePattern MatchKind = "route_pattern"
	MatchPathPattern  MatchKind = "path_pattern"
)

// Policy is a resolved cache duration and the rule that produced it.
type Policy struct {
	Duration  time.Duration
	MatchedBy MatchKind
	Pattern   string
}

type compiledRule struct {
	m        *matcher
	duration time.Duration
}

// Engine applies a Config to responses.
type Engine struct {
	cfg      Config
	exact    map[string]time.Duration
	routes   []compiledRule
	paths    []compiledRule
	excluded []*matcher
	loader   []*matcher
	log      zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used when Config.Logging is on.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New compiles cfg. Patterns that fail to compile never match.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		exact: make(map[string]time.Duration, len(cfg.RouteRules)),
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.cfg.RouteRules = append([]Rule(nil), cfg.RouteRules...)
	e.cfg.PathRules = append([]Rule(nil), cfg.PathRules...)
	e.cfg.ExcludedRoutes = append([]string(nil), cfg.ExcludedRoutes...)
	e.cfg.CustomHeaders = append([]Header(nil), cfg.CustomHeaders...)
	e.cfg.CSRFLoaderRoutes.Routes = append([]string(nil), cfg.CSRFLoaderRoutes.Routes...)
	if e.cfg.CSRFEndpointPath == "" {
		e.cfg.CSRFEndpointPath = DefaultCSRFEndpoint
	}

	for _, r := range e.cfg.RouteRules {
		d := e.ruleDuration(r)
		if _, seen := e.exact[r.Pattern]; !seen {
			e.exact[r.Pattern] = d
		}
		e.routes = append(e.routes, compiledRule{m: compileRoutePattern(r.Pattern), duration: d})
	}
	for _, r := range e.cfg.PathRules {
		e.paths = append(e.paths, compiledRule{m: compilePathPattern(r.Pattern), duration: e.ruleDuration(r)})
	}
	for _, p := range e.cfg.ExcludedRoutes {
		e.excluded = append(e.excluded, compileRoutePattern(p))
	}
	for _, p := range e.cfg.CSRFLoaderRoutes.Routes {
		e.loader = append(e.loader, compileRoutePattern(p))
	}
	return e
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.RouteRules = append([]Rule(nil), e.cfg.RouteRules...)
	cfg.PathRules = append([]Rule(nil), e.cfg.PathRules...)
	cfg.ExcludedRoutes = append([]string(nil), e.cfg.ExcludedRoutes...)
	cfg.CustomHeaders = append([]Header(nil), e.cfg.CustomHeaders...)
	cfg.CSRFLoaderRoutes.Routes = append([]string(nil), e.cfg.CSRFLoaderRoutes.Routes...)
	return cfg
}

// Engine makes *Engine a Provider of itself.
func (e *Engine) Engine() *Engine { return e }

// a rule declared without a duration falls back to the default; an
// explicit zero stays zero
func (e *Engine) ruleDuration(r Rule) time.Duration {
	if r.UseDefault {
		return e.cfg.DefaultDuration
	}
	return r.Duration
}

// Reasons a request is not eligible.
const (
	ReasonDisabled      = "disabled"
	ReasonMethod        = "method"
	ReasonAuthenticated = "authenticated"
)

// Eligible reports whether the request may be considered for caching at all.
func (e *Engine) Eligible(req Request) bool {
	return e.gate(req) == ""
}

// gate returns why req is not eligible, or "".
func (e *Engine) gate(req Request) string {
	if !e.cfg.Enabled {
		return ReasonDisabled
	}
	if !strings.EqualFold(req.Method, http.MethodGet) && !strings.EqualFold(req.Method, http.MethodHead) {
		return ReasonMethod
	}
	if e.cfg.SkipAuthenticated && req.Authenticated {
		return ReasonAuthenticated
	}
	return ""
}

// Excluded returns the first exclusion pattern matching routeName.
func (e *Engine) Excluded(routeName string) (string, bool) {
	if routeName == "" {
		return "", false
	}
	for _, m := range e.excluded {
		if m.match(routeName) {
			return m.pattern, true
		}
	}
	return "", false
}

// Resolve finds the cache policy for req: exclusions first, then an exact
// route name, then route patterns and finally path patterns, each in
// declaration order.
func (e *Engine) Resolve(req Request) (Policy, bool) {
	if _, excluded := e.Excluded(req.RouteName); excluded {
		return Policy{}, false
	}
	if req.RouteName != "" {
		if d, ok := e.exact[req.RouteName]; ok {
			return Policy{Duration: d, MatchedBy: MatchExactRoute, Pattern: req.RouteName}, true
		}
		for _, r := range e.routes {
			if r.m.match(req.RouteName) {
				return Policy{Duration: r.duration, MatchedBy: MatchRoutePattern, Pattern: r.m.pattern}, true
			}
		}
	}
	path := normalizePath(req.Path)
	for _, r := range e.paths {
		if r.m.match(path) {
			return Policy{Duration: r.duration, MatchedBy: MatchPathPattern, Pattern: r.m.pattern}, true
		}
	}
	return Policy{}, false
}
