package cdnheaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderScript(t *testing.T) {
	script := LoaderScript("/csrf")
	assert.Contains(t, script, `var endpoint = "/csrf";`)
	assert.NotContains(t, script, endpointPlaceholder)
	assert.True(t, strings.HasPrefix(script, "<script"))

	// a hostile endpoint cannot break out of the script element
	script = LoaderScript(`/x"</script><script>alert(1)`)
	assert.NotContains(t, script, `</script><script>alert(1)`)
}

func TestInjectLoader_Auto(t *testing.T) {
	e := New(DefaultConfig())
	body := "<html><body><p>hi</p></body></html>"

	res := NewArtifact("text/html", []byte(body))
	require.True(t, e.InjectLoader(res, SanitizationResult{TokensRemoved: true}, Request{}))
	out := string(res.Content)
	assert.True(t, strings.HasSuffix(out, LoaderScript(DefaultCSRFEndpoint)+"</body></html>"))

	res = NewArtifact("text/html", []byte(body))
	assert.False(t, e.InjectLoader(res, SanitizationResult{}, Request{}))
	assert.Equal(t, body, string(res.Content))
}

func TestInjectLoader_FirstClosingBodyOnly(t *testing.T) {
	e := New(DefaultConfig())
	body := "<body>a</BODY><template></body></template>"
	res := NewArtifact("text/html", []byte(body))

	require.True(t, e.InjectLoader(res, SanitizationResult{TokensRemoved: true}, Request{}))
	out := string(res.Content)
	assert.Equal(t, 1, strings.Count(out, `data-cdn-headers="csrf-loader"`))
	assert.True(t, strings.HasPrefix(out, "<body>a<script"))
}

func TestInjectLoader_NoClosingBody(t *testing.T) {
	e := New(DefaultConfig())
	body := `<div>fragment</div>`
	res := NewArtifact("text/html", []byte(body))

	assert.False(t, e.InjectLoader(res, SanitizationResult{TokensRemoved: true}, Request{}))
	assert.Equal(t, body, string(res.Content))
}

func TestInjectLoader_ExplicitRoutes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CSRFLoaderRoutes = LoaderRoutes{Routes: []string{"checkout.*"}}
	cfg.CSRFEndpointPath = "/token"
	e := New(cfg)

	res := NewArtifact("text/html", []byte("<body></body>"))
	require.True(t, e.InjectLoader(res, SanitizationResult{}, Request{RouteName: "checkout.cart"}))
	assert.Contains(t, string(res.Content), `var endpoint = "/token";`)

	res = NewArtifact("text/html", []byte("<body></body>"))
	assert.False(t, e.InjectLoader(res, SanitizationResult{TokensRemoved: true}, Request{RouteName: "blog.show"}))
	assert.False(t, e.InjectLoader(res, SanitizationResult{TokensRemoved: true}, Request{}))
}

func TestInjectLoader_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InjectCSRFLoader = false
	res := NewArtifact("text/html", []byte("<body></body>"))
	assert.False(t, New(cfg).InjectLoader(res, SanitizationResult{TokensRemoved: true}, Request{}))
}

func TestInjectLoader_NonHTML(t *testing.T) {
	res := NewArtifact("application/json", []byte(`{"a":"</body>"}`))
	assert.False(t, New(DefaultConfig()).InjectLoader(res, SanitizationResult{TokensRemoved: true}, Request{}))
}
