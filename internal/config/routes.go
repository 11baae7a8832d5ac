package config

import (
	"net/http"
	"strings"
)

// RouteName finds the endpoint serving method and path and returns its
// name. Placeholders like {id} match one non-empty segment.
func (fc *FinalConfig) RouteName(method, path string) string {
	method = strings.ToUpper(method)
	if method == http.MethodHead {
		method = http.MethodGet
	}
	segs := splitPath(path)
	for _, ep := range fc.Endpoints {
		epMethod := strings.ToUpper(strings.TrimSpace(ep.Method))
		if epMethod == "" {
			epMethod = http.MethodGet
		}
		if epMethod != method {
			continue
		}
		if segmentsMatch(splitPath(ep.Path), segs) {
			return ep.Name
		}
	}
	return ""
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func segmentsMatch(pattern, actual []string) bool {
	if len(pattern) != len(actual) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if actual[i] == "" {
				return false
			}
			continue
		}
		if seg != actual[i] {
			return false
		}
	}
	return true
}
