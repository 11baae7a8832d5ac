package httpserver

import (
	"bytes"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"cdnheaders/internal/config"
)

func indexServices(services []config.Service) map[string]config.Service {
	out := make(map[string]config.Service, len(services))
	for _, s := range services {
		out[s.Name] = s
	}
	return out
}

// proxyHandler forwards the request to the endpoint's backend service and
// relays status, headers and body. The CDN middleware sees the relayed
// response afterwards.
func (s *Server) proxyHandler(services map[string]config.Service, ep config.Endpoint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := reqLogger(c)

		if ep.AuthRequired && !s.authenticated(c) {
			return c.Status(http.StatusUnauthorized).SendString("unauthorized")
		}

		svc, ok := services[ep.Backend.Service]
		if !ok {
			return c.Status(http.StatusBadGateway).SendString("unknown backend service")
		}

		method := ep.Backend.Method
		if method == "" {
			method = c.Method()
		}
		path := ep.Backend.Path
		if path == "" {
			path = c.Path()
		}
		path = expandPath(path, func(name string) string { return c.Params(name) })

		resp, err := doHTTPCall(c.UserContext(), s.client, svc, backendCall{
			Method:   method,
			Path:     path,
			RawQuery: string(c.Request().URI().QueryString()),
			Header:   forwardHeaders(c),
			Body:     bytes.NewReader(c.Body()),
		})
		if err != nil {
			log.Error().Err(err).Str("svc", svc.Name).Str("path", path).Msg("backend call failed")
			return c.Status(http.StatusBadGateway).SendString("backend unavailable")
		}

		log.Debug().Str("svc", svc.Name).Str("method", method).Str("path", path).Int("status", resp.Status).Msg("backend call")

		copyRespHeaders(resp.Header, c)
		c.Status(resp.Status)
		return c.Send(resp.Body)
	}
}
