package cdnheaders

import (
	"bytes"
	"regexp"
	"strings"
)

const removedMarker = "/* CSRF token removed for caching */"

// SanitizationResult carries the sanitizer outcome to the loader injector of
// the same request.
type SanitizationResult struct {
	TokensRemoved bool
}

// substitution rewrites every match of re, either by expanding template
// (${n} refers to groups of re) or through fn.
type substitution struct {
	re       *regexp.Regexp
	template string
	fn       func(match []byte) []byte
}

func (s substitution) apply(content []byte) []byte {
	if s.fn != nil {
		return s.re.ReplaceAllFunc(content, s.fn)
	}
	return s.re.ReplaceAll(content, []byte(s.template))
}

var (
	// the token value inside a namespaced object literal, quoted key or not
	objectTokenRe = regexp.MustCompile(`(?i)(["']?csrfToken["']?\s*:\s*)["'][^"']*["']`)

	// Order matters: each step runs on the output of the previous one. The
	// script block form is neutralized before the broader bare assignment
	// form gets a chance to see it.
	substitutions = []substitution{
		// <meta name="csrf-token" content="..."> keeps the tag, loses the value
		{
			re:       regexp.MustCompile(`(?i)(<meta\s+name=["']csrf-token["']\s+content=)(["'])[^"']*(["'])(\s*/?>)`),
			template: "${1}${2}${3}${4}",
		},
		// <script>window.App = {..., "csrfToken": "..."}</script>
		{
			re: regexp.MustCompile(`(?i)<script[^>]*>\s*window\.[a-z_$][\w$]*\s*=\s*\{[^}]*["']?csrfToken["']?\s*:\s*["'][^"']*["'][^}]*\}[^<]*</script>`),
			fn: blankObjectToken,
		},
		// window.App = {..., "csrfToken": "..."} anywhere else
		{
			re: regexp.MustCompile(`(?i)window\.[a-z_$][\w$]*\s*=\s*\{[^}]*["']?csrfToken["']?\s*:\s*["'][^"']*["'][^}]*\}`),
			fn: blankObjectToken,
		},
		{
			re:       regexp.MustCompile(`(?i)window\._token\s*=\s*["'][^"']*["']`),
			template: "window._token = null " + removedMarker,
		},
		// hidden inputs, name before value
		{
			re:       regexp.MustCompile(`(?i)(<input\b[^>]*\bname=["']_token["'][^>]*\bvalue=)(["'])[^"']*(["'])`),
			template: "${1}${2}${3}",
		},
		// hidden inputs, value before name
		{
			re:       regexp.MustCompile(`(?i)(<input\b[^>]*\bvalue=)(["'])[^"']*(["'])([^>]*\bname=["']_token["'])`),
			template: "${1}${2}${3}${4}",
		},
	}
)

func blankObjectToken(match []byte) []byte {
	return objectTokenRe.ReplaceAll(match, []byte("${1}null "+removedMarker))
}

// Sanitize strips embedded CSRF tokens from an HTML response body. Other
// content types are left untouched. TokensRemoved is decided by comparing
// the final body with the original one.
func Sanitize(res Response) SanitizationResult {
	if !isHTML(res.ContentType()) {
		return SanitizationResult{}
	}
	original := res.Body()
	if len(original) == 0 {
		return SanitizationResult{}
	}
	out := SanitizeHTML(original)
	if bytes.Equal(out, original) {
		return SanitizationResult{}
	}
	res.SetBody(out)
	return SanitizationResult{TokensRemoved: true}
}

// SanitizeHTML applies every substitution in order and returns the result.
func SanitizeHTML(content []byte) []byte {
	out := content
	for _, s := range substitutions {
		out = s.apply(out)
	}
	return out
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
