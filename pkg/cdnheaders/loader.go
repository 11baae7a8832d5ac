package cdnheaders

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
)

//go:embed csrf_loader.js
var loaderTemplate string

const endpointPlaceholder = "__CSRF_ENDPOINT__"

var closingBodyRe = regexp.MustCompile(`(?i)</body\s*>`)

// LoaderScript renders the bootstrap script for endpoint.
func LoaderScript(endpoint string) string {
	// json.Marshal escapes <, > and & so the literal cannot close the script
	lit, err := json.Marshal(endpoint)
	if err != nil {
		lit = []byte(`""`)
	}
	return strings.Replace(loaderTemplate, endpointPlaceholder, string(lit), 1)
}

// ShouldInjectLoader applies the injection criteria for one response.
func (e *Engine) ShouldInjectLoader(sr SanitizationResult, req Request) bool {
	if !e.cfg.InjectCSRFLoader {
		return false
	}
	if e.cfg.CSRFLoaderRoutes.Auto {
		return sr.TokensRemoved
	}
	if req.RouteName == "" {
		return false
	}
	for _, m := range e.loader {
		if m.match(req.RouteName) {
			return true
		}
	}
	return false
}

// InjectLoader inserts the loader script right before the first </body>.
// Documents without a closing body tag are left as they are.
func (e *Engine) InjectLoader(res Response, sr SanitizationResult, req Request) bool {
	if !isHTML(res.ContentType()) || !e.ShouldInjectLoader(sr, req) {
		return false
	}
	body := res.Body()
	loc := closingBodyRe.FindIndex(body)
	if loc == nil {
		return false
	}
	script := LoaderScript(e.cfg.CSRFEndpointPath)
	out := make([]byte, 0, len(body)+len(script))
	out = append(out, body[:loc[0]]...)
	out = append(out, script...)
	out = append(out, body[loc[0]:]...)
	res.SetBody(out)
	return true
}
