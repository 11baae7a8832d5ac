package cdnheaders

import (
	"regexp"
	"strings"
)

// matcher is a compiled wildcard pattern. A nil matcher never matches.
type matcher struct {
	pattern string
	re      *regexp.Regexp
}

func (m *matcher) match(s string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(s)
}

// compileRoutePattern compiles a route name pattern. '*' spans any run of
// characters, dots included, so "products.*" matches "products.index.page"
// but never "admin.products".
func compileRoutePattern(pattern string) *matcher {
	expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
	re, err := regexp.Compile(`(?s)^` + expr + `$`)
	if err != nil {
		return nil
	}
	return &matcher{pattern: pattern, re: re}
}

// compilePathPattern compiles a URL path pattern. '*' stops at '/', so
// "/api/*" matches "/api/users" and not "/api/users/1".
func compilePathPattern(pattern string) *matcher {
	expr := strings.ReplaceAll(regexp.QuoteMeta(normalizePath(pattern)), `\*`, `[^/]*`)
	re, err := regexp.Compile(`^` + expr + `$`)
	if err != nil {
		return nil
	}
	return &matcher{pattern: pattern, re: re}
}

func normalizePath(p string) string {
	return "/" + strings.TrimLeft(p, "/")
}

// MatchRoute reports whether a route name matches a route pattern.
func MatchRoute(routeName, pattern string) bool {
	return compileRoutePattern(pattern).match(routeName)
}

// MatchPath reports whether a URL path matches a path pattern.
func MatchPath(path, pattern string) bool {
	return compilePathPattern(pattern).match(normalizePath(path))
}
