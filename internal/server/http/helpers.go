package httpserver

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var pathParamRegex = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// forwardedHeaders are copied from the client request to the backend.
var forwardedHeaders = []string{
	"Accept",
	"Accept-Language",
	"Authorization",
	"Content-Type",
	"Cookie",
	"User-Agent",
	"X-CSRF-Token",
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Request-Id",
	"X-Requested-With",
}

// hopHeaders are connection-level and never copied back to the client.
var hopHeaders = map[string]struct{}{
	"Connection":        {},
	"Content-Length":    {},
	"Keep-Alive":        {},
	"Proxy-Connection":  {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
}

func forwardHeaders(c *fiber.Ctx) http.Header {
	h := make(http.Header)
	for _, k := range forwardedHeaders {
		if v := c.Get(k); v != "" {
			h.Set(k, v)
		}
	}
	if h.Get("X-Forwarded-For") == "" {
		h.Set("X-Forwarded-For", c.IP())
	}
	return h
}

// copyRespHeaders keeps every value of multi-valued headers such as
// Set-Cookie and Vary.
func copyRespHeaders(src http.Header, c *fiber.Ctx) {
	for k, vals := range src {
		if _, hop := hopHeaders[http.CanonicalHeaderKey(k)]; hop {
			continue
		}
		c.Response().Header.Del(k)
		for _, v := range vals {
			c.Response().Header.Add(k, v)
		}
	}
}

// fiberPath turns "/posts/{id}" into "/posts/:id".
func fiberPath(path string) string {
	if path == "" {
		return path
	}
	return pathParamRegex.ReplaceAllString(path, ":$1")
}

// expandPath fills "{name}" placeholders of a backend path from the matched
// route parameters.
func expandPath(tpl string, param func(name string) string) string {
	return pathParamRegex.ReplaceAllStringFunc(tpl, func(m string) string {
		name := m[1 : len(m)-1]
		return url.PathEscape(param(name))
	})
}

func singleJoinPath(a, b string) string {
	if a == "" && b == "" {
		return "/"
	}
	if a == "" {
		if !strings.HasPrefix(b, "/") {
			return "/" + b
		}
		return b
	}
	if b == "" {
		if !strings.HasPrefix(a, "/") {
			return "/" + a
		}
		return a
	}

	a = strings.TrimRight(a, "/")
	b = strings.TrimLeft(b, "/")
	return a + "/" + b
}

func parseBaseURL(raw string) (*url.URL, error) {
	baseURL := raw
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return url.Parse(baseURL)
}
