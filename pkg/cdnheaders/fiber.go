package cdnheaders

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// FiberOptions configures FiberMiddleware.
type FiberOptions struct {
	// Authenticated reports whether the request carries a user session.
	// Requests are anonymous when nil.
	Authenticated func(c *fiber.Ctx) bool
	// RouteName overrides the route name lookup. By default the name given
	// to the matched fiber route is used.
	RouteName func(c *fiber.Ctx) string
}

// FiberMiddleware runs the pipeline on every response produced downstream.
func FiberMiddleware(p Provider, opts FiberOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		e := p.Engine()
		if e == nil {
			return nil
		}
		req := Request{
			Method: c.Method(),
			Path:   c.Path(),
		}
		if opts.RouteName != nil {
			req.RouteName = opts.RouteName(c)
		} else if r := c.Route(); r != nil {
			req.RouteName = r.Name
		}
		if opts.Authenticated != nil {
			req.Authenticated = opts.Authenticated(c)
		}
		e.Process(req, fiberResponse{c: c})
		return nil
	}
}

type fiberResponse struct {
	c *fiber.Ctx
}

func (r fiberResponse) Headers() Headers { return fiberHeaders{c: r.c} }

func (r fiberResponse) ContentType() string {
	return string(r.c.Response().Header.ContentType())
}

func (r fiberResponse) Body() []byte { return r.c.Response().Body() }

func (r fiberResponse) SetBody(body []byte) { r.c.Response().SetBody(body) }

type fiberHeaders struct {
	c *fiber.Ctx
}

func (h fiberHeaders) Get(name string) string {
	return string(h.c.Response().Header.Peek(name))
}

func (h fiberHeaders) Values(name string) []string {
	var out []string
	h.c.Response().Header.VisitAll(func(key, value []byte) {
		if strings.EqualFold(string(key), name) {
			out = append(out, string(value))
		}
	})
	return out
}

// Set replaces every existing value of name.
func (h fiberHeaders) Set(name, value string) {
	h.c.Response().Header.Del(name)
	h.c.Response().Header.Set(name, value)
}

func (h fiberHeaders) Del(name string) {
	h.c.Response().Header.Del(name)
}
