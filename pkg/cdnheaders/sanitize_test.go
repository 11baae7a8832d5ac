package cdnheaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHTML_Patterns(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "meta tag keeps structure",
			in:   `<meta name="csrf-token" content="X">`,
			want: `<meta name="csrf-token" content="">`,
		},
		{
			name: "self closing meta, single quotes, mixed case",
			in:   `<META NAME='csrf-token' CONTENT='X' />`,
			want: `<META NAME='csrf-token' CONTENT='' />`,
		},
		{
			name: "script block",
			in:   `<script>window.Laravel = {"csrfToken": "X", "locale": "en"};</script>`,
			want: `<script>window.Laravel = {"csrfToken": null /* CSRF token removed for caching */, "locale": "en"};</script>`,
		},
		{
			name: "bare assignment with other namespace",
			in:   `var a = 1; window.App = {locale: 'en', csrfToken: 'X'};`,
			want: `var a = 1; window.App = {locale: 'en', csrfToken: null /* CSRF token removed for caching */};`,
		},
		{
			name: "standalone token",
			in:   `<script>window._token = "X";</script>`,
			want: `<script>window._token = null /* CSRF token removed for caching */;</script>`,
		},
		{
			name: "input name before value",
			in:   `<input type="hidden" name="_token" value="X" autocomplete="off">`,
			want: `<input type="hidden" name="_token" value="" autocomplete="off">`,
		},
		{
			name: "input value before name",
			in:   `<input value='X' type="hidden" name='_token'>`,
			want: `<input value='' type="hidden" name='_token'>`,
		},
		{
			name: "other inputs untouched",
			in:   `<input type="text" name="email" value="me@example.com">`,
			want: `<input type="text" name="email" value="me@example.com">`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(SanitizeHTML([]byte(tt.in))))
		})
	}
}

func TestSanitize_MetaAndNamespace(t *testing.T) {
	body := `<html><head><meta name="csrf-token" content="X"></head>` +
		`<body><script>window.Laravel = {"csrfToken": "X"}</script></body></html>`
	res := NewArtifact("text/html; charset=UTF-8", []byte(body))

	sr := Sanitize(res)

	assert.True(t, sr.TokensRemoved)
	assert.NotContains(t, string(res.Content), `"X"`)
	assert.Contains(t, string(res.Content), `<meta name="csrf-token" content="">`)
}

func TestSanitize_ScriptBlockNotRematched(t *testing.T) {
	body := `<script>window.Laravel = {"csrfToken": "X"}</script>`
	out := string(SanitizeHTML([]byte(body)))
	assert.Equal(t, 1, strings.Count(out, removedMarker))
}

func TestSanitize_NonHTMLUntouched(t *testing.T) {
	for _, ct := range []string{"application/json", "text/plain", "application/javascript", ""} {
		body := `{"csrf_token": "X", "html": "<meta name=\"csrf-token\" content=\"X\">"}`
		res := NewArtifact(ct, []byte(body))
		sr := Sanitize(res)
		assert.False(t, sr.TokensRemoved, ct)
		assert.Equal(t, body, string(res.Content), ct)
	}
}

func TestSanitize_NothingToRemove(t *testing.T) {
	body := `<html><body><p>hello</p></body></html>`
	res := NewArtifact("text/html", []byte(body))
	assert.False(t, Sanitize(res).TokensRemoved)
	assert.Equal(t, body, string(res.Content))
}

// The flag comes from one comparison of the whole document, so text that
// already looks sanitized reports nothing removed.
func TestSanitize_WholeDocumentComparison(t *testing.T) {
	body := `<meta name="csrf-token" content=""><script>window._token = null /* CSRF token removed for caching */;` +
		`window.Laravel = {"csrfToken": null /* CSRF token removed for caching */}</script>` +
		`<input name="_token" value="">`
	res := NewArtifact("text/html", []byte(body))

	assert.False(t, Sanitize(res).TokensRemoved)
	assert.Equal(t, body, string(res.Content))
}

func TestSanitize_Deterministic(t *testing.T) {
	body := []byte(`<meta name="csrf-token" content="a"><script>window.Laravel = {"csrfToken": "a"}; window._token = 'a';</script>` +
		`<form><input name="_token" value="a"><input value="a" name="_token"></form>`)

	first := SanitizeHTML(body)
	second := SanitizeHTML(body)
	require.Equal(t, first, second)

	// sanitizing sanitized output is a no-op
	assert.Equal(t, first, SanitizeHTML(first))
	assert.NotContains(t, string(first), `"a"`)
	assert.NotContains(t, string(first), `'a'`)
}
