package cdnheaders

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// HTTPOptions configures HTTPMiddleware.
type HTTPOptions struct {
	// Authenticated reports whether the request carries a user session.
	Authenticated func(r *http.Request) bool
	// RouteName returns the logical route name. It is called after the
	// downstream handler ran, so router state is available.
	RouteName func(r *http.Request) string
}

// HTTPMiddleware buffers the downstream response, runs the pipeline on it
// and then writes it to the client.
func HTTPMiddleware(p Provider, opts HTTPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newResponseRecorder()
			next.ServeHTTP(rec, r)

			if e := p.Engine(); e != nil {
				req := Request{Method: r.Method, Path: r.URL.Path}
				if opts.RouteName != nil {
					req.RouteName = opts.RouteName(r)
				}
				if opts.Authenticated != nil {
					req.Authenticated = opts.Authenticated(r)
				}
				e.Process(req, rec.artifact())
			}
			rec.flush(w)
		})
	}
}

// ChiRouteName maps chi route patterns to route names. It only sees the
// pattern when the middleware is mounted on the chi router itself.
func ChiRouteName(names map[string]string) func(r *http.Request) string {
	return func(r *http.Request) string {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return ""
		}
		return names[rctx.RoutePattern()]
	}
}

// responseRecorder keeps the downstream response in memory.
type responseRecorder struct {
	header http.Header
	body   *bytes.Buffer
	status int
	art    *Artifact
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: make(http.Header), body: &bytes.Buffer{}}
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.status == 0 {
		r.status = statusCode
	}
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

func (r *responseRecorder) artifact() *Artifact {
	if r.header.Get("Content-Type") == "" && r.body.Len() > 0 {
		r.header.Set("Content-Type", http.DetectContentType(r.body.Bytes()))
	}
	r.art = &Artifact{Header: r.header, Content: r.body.Bytes()}
	return r.art
}

func (r *responseRecorder) flush(w http.ResponseWriter) {
	body := r.body.Bytes()
	if r.art != nil {
		body = r.art.Content
		if r.header.Get("Content-Length") != "" {
			r.header.Set("Content-Length", strconv.Itoa(len(body)))
		}
	}
	dst := w.Header()
	for k, vv := range r.header {
		dst[k] = append([]string(nil), vv...)
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
