package httpserver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cdnheaders/internal/report"
	"cdnheaders/pkg/cdnheaders"
)

var supportedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// registerRoutes mounts operator routes first so the CDN middleware never
// touches them, then the gateway endpoints behind it.
func (s *Server) registerRoutes() {
	app := s.app

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get(s.engines.Engine().Config().CSRFEndpointPath, s.tokens.handle)

	if strings.ToLower(strings.TrimSpace(s.cfg.Env)) == "dev" {
		app.Get("/debug/config", s.debugConfig)
	}
	app.Get("/debug/explain", s.debugExplain)

	app.Use(cdnheaders.FiberMiddleware(s.engines, cdnheaders.FiberOptions{
		Authenticated: s.authenticated,
	}))
	if s.cfg.Gateway.VerifyCSRF {
		app.Use(func(c *fiber.Ctx) error {
			if safeMethod(c.Method()) || s.tokens.verify(c) {
				return c.Next()
			}
			return c.Status(http.StatusForbidden).SendString("csrf token mismatch")
		})
	}

	services := indexServices(s.cfg.Services)

	for _, ep := range s.cfg.Endpoints {
		if ep.Backend == nil {
			s.log.Warn().Str("method", ep.Method).Str("path", ep.Path).Msg("endpoint has no backend, skipping")
			continue
		}

		method := strings.ToUpper(strings.TrimSpace(ep.Method))
		if method == "" {
			method = http.MethodGet
		}
		if _, ok := supportedMethods[method]; !ok {
			s.log.Warn().Str("method", method).Str("path", ep.Path).Msg("unsupported method, skipping")
			continue
		}

		path := fiberPath(ep.Path)
		h := s.proxyHandler(services, ep)

		var r fiber.Router
		if method == http.MethodGet {
			r = app.Get(path, h)
		} else {
			r = app.Add(method, path, h)
		}
		if ep.Name != "" {
			r.Name(ep.Name)
		}
		s.log.Info().Str("method", method).Str("path", path).Str("route", ep.Name).Msg("register endpoint")
	}
}

// authenticated treats a bearer header or the auth cookie as a user session.
func (s *Server) authenticated(c *fiber.Ctx) bool {
	if c.Get(fiber.HeaderAuthorization) != "" {
		return true
	}
	name := s.cfg.Gateway.AuthCookie
	return name != "" && c.Cookies(name) != ""
}

func (s *Server) debugConfig(c *fiber.Ctx) error {
	snapshot := *s.cfg
	snapshot.CDN = s.engines.Engine().Config()
	out, err := snapshot.Pretty()
	if err != nil {
		return c.Status(http.StatusInternalServerError).SendString(err.Error())
	}
	c.Set(fiber.HeaderContentType, "application/yaml; charset=utf-8")
	return c.SendString(out)
}

// debugExplain renders the dry run for ?url=&method=&route=. Without route
// the name is looked up among the configured endpoints.
func (s *Server) debugExplain(c *fiber.Ctx) error {
	target := c.Query("url")
	if target == "" {
		return c.Status(http.StatusBadRequest).SendString("url is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return c.Status(http.StatusBadRequest).SendString("invalid url")
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	method := strings.ToUpper(c.Query("method", http.MethodGet))
	route := c.Query("route")
	if route == "" {
		route = s.cfg.RouteName(method, path)
	}

	ex := s.engines.Engine().Explain(cdnheaders.Request{
		Method:    method,
		Path:      path,
		RouteName: route,
	})
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("txt")
	return report.Explain(c, target, ex)
}
