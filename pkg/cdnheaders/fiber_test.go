package cdnheaders

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<html><head><meta name="csrf-token" content="abc123"></head>` +
	`<body><form><input type="hidden" name="_token" value="abc123"></form></body></html>`

func newFiberApp(t *testing.T, cfg Config) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(FiberMiddleware(NewHolder(New(cfg)), FiberOptions{
		Authenticated: func(c *fiber.Ctx) bool { return c.Get("Authorization") != "" },
	}))

	app.Get("/products/:id", func(c *fiber.Ctx) error {
		c.Set("Vary", "Accept-Encoding, Cookie")
		c.Cookie(&fiber.Cookie{Name: "session", Value: "s"})
		c.Type("html")
		return c.SendString(productPage)
	}).Name("products.show")

	app.Get("/api/items", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"csrf_token": "abc123"})
	}).Name("api.items")

	app.Post("/products/:id", func(c *fiber.Ctx) error {
		c.Type("html")
		return c.SendString(productPage)
	}).Name("products.update")

	app.Get("/admin", func(c *fiber.Ctx) error {
		return c.SendString("admin")
	}).Name("admin.dashboard")

	return app
}

func fiberConfig() Config {
	cfg := DefaultConfig()
	cfg.RouteRules = []Rule{
		{Pattern: "products.*", Duration: 10 * time.Minute},
		{Pattern: "api.*", Duration: time.Minute},
		{Pattern: "admin.*", Duration: time.Minute},
	}
	cfg.ExcludedRoutes = []string{"admin.*"}
	return cfg
}

func doFiber(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}

func TestFiberMiddleware_CachesNamedRoute(t *testing.T) {
	app := newFiberApp(t, fiberConfig())

	resp, body := doFiber(t, app, httptest.NewRequest(http.MethodGet, "/products/1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=600, s-maxage=600", resp.Header.Get("Cache-Control"))
	assert.Empty(t, resp.Header.Get("Surrogate-Control"))
	assert.Empty(t, resp.Header.Values("Set-Cookie"))
	assert.Equal(t, "Accept-Encoding", resp.Header.Get("Vary"))

	assert.NotContains(t, body, "abc123")
	assert.Contains(t, body, `data-cdn-headers="csrf-loader"`)
}

func TestFiberMiddleware_UnsafeMethod(t *testing.T) {
	app := newFiberApp(t, fiberConfig())

	resp, body := doFiber(t, app, httptest.NewRequest(http.MethodPost, "/products/1", nil))
	assert.Empty(t, resp.Header.Get("Cache-Control"))
	assert.Contains(t, body, "abc123")
}

func TestFiberMiddleware_Authenticated(t *testing.T) {
	app := newFiberApp(t, fiberConfig())

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	req.Header.Set("Authorization", "Bearer x")
	resp, body := doFiber(t, app, req)
	assert.Empty(t, resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"))
	assert.Contains(t, body, "abc123")
}

func TestFiberMiddleware_JSONPassthrough(t *testing.T) {
	app := newFiberApp(t, fiberConfig())

	resp, body := doFiber(t, app, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.Equal(t, "public, max-age=60, s-maxage=60", resp.Header.Get("Cache-Control"))
	assert.JSONEq(t, `{"csrf_token":"abc123"}`, body)
}

func TestFiberMiddleware_Excluded(t *testing.T) {
	app := newFiberApp(t, fiberConfig())

	resp, _ := doFiber(t, app, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Empty(t, resp.Header.Get("Cache-Control"))
}

func TestFiberMiddleware_HandlerError(t *testing.T) {
	app := fiber.New()
	app.Use(FiberMiddleware(NewHolder(New(fiberConfig())), FiberOptions{}))
	app.Get("/products/:id", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	}).Name("products.show")

	resp, _ := doFiber(t, app, httptest.NewRequest(http.MethodGet, "/products/9", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Cache-Control"))
}

func TestFiberMiddleware_HotSwap(t *testing.T) {
	holder := NewHolder(New(fiberConfig()))
	app := fiber.New()
	app.Use(FiberMiddleware(holder, FiberOptions{}))
	app.Get("/products/:id", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	}).Name("products.show")

	resp, _ := doFiber(t, app, httptest.NewRequest(http.MethodGet, "/products/1", nil))
	assert.Equal(t, "public, max-age=600, s-maxage=600", resp.Header.Get("Cache-Control"))

	cfg := fiberConfig()
	cfg.Enabled = false
	holder.Swap(New(cfg))

	resp, _ = doFiber(t, app, httptest.NewRequest(http.MethodGet, "/products/1", nil))
	assert.Empty(t, resp.Header.Get("Cache-Control"))
}
