package cdnheaders

import "net/http"

// Request describes the inbound request a response belongs to.
type Request struct {
	Method        string
	Path          string
	RouteName     string
	Authenticated bool
}

// Headers is case-insensitive, multi-valued header access.
// http.Header satisfies it.
type Headers interface {
	Get(name string) string
	Values(name string) []string
	Set(name, value string)
	Del(name string)
}

// Response is the outgoing response mutated by the pipeline.
type Response interface {
	Headers() Headers
	ContentType() string
	Body() []byte
	SetBody(body []byte)
}

// Artifact is an in-memory Response backed by http.Header.
type Artifact struct {
	Header  http.Header
	Content []byte
}

// NewArtifact returns an empty artifact with the given content type.
func NewArtifact(contentType string, body []byte) *Artifact {
	a := &Artifact{Header: make(http.Header), Content: body}
	if contentType != "" {
		a.Header.Set("Content-Type", contentType)
	}
	return a
}

func (a *Artifact) Headers() Headers { return a.Header }

func (a *Artifact) ContentType() string { return a.Header.Get("Content-Type") }

func (a *Artifact) Body() []byte { return a.Content }

func (a *Artifact) SetBody(body []byte) { a.Content = body }
