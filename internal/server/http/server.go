package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"cdnheaders/internal/config"
	"cdnheaders/pkg/cache"
	"cdnheaders/pkg/cdnheaders"
	"cdnheaders/pkg/telemetry"
)

// Deps are the collaborators built by main.
type Deps struct {
	Engines *cdnheaders.Holder
	Tokens  *cache.Cache
	Client  *http.Client
	Log     zerolog.Logger
}

// Server wraps the Fiber app, the gateway configuration and the engine
// snapshot the CDN middleware reads.
type Server struct {
	app     *fiber.App
	cfg     *config.FinalConfig
	engines *cdnheaders.Holder
	tokens  *tokenIssuer
	client  *http.Client
	log     zerolog.Logger
}

// New builds a Fiber server with common middlewares.
func New(cfg *config.FinalConfig, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "cdnheaders",
		ReadTimeout:           time.Duration(cfg.Gateway.ReadTimeoutSec) * time.Second,
		WriteTimeout:          time.Duration(cfg.Gateway.WriteTimeoutSec) * time.Second,
		IdleTimeout:           time.Duration(cfg.Gateway.IdleTimeoutSec) * time.Second,
		DisableStartupMessage: true,
	})

	engines := deps.Engines
	if engines == nil {
		engines = cdnheaders.NewHolder(cdnheaders.New(cfg.CDN))
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = cache.New(cache.NewMemory(), "csrf", 0)
	}
	client := deps.Client
	if client == nil {
		client = telemetry.HTTPClient(0)
	}

	s := &Server{
		app:     app,
		cfg:     cfg,
		engines: engines,
		tokens: &tokenIssuer{
			cache:  tokens,
			ttl:    tokenTTL(cfg.Cache.TTL),
			cookie: cfg.Gateway.SessionCookie,
		},
		client: client,
		log:    deps.Log.With().Str("component", "gateway").Logger(),
	}
	if s.tokens.cookie == "" {
		s.tokens.cookie = "cdn_session"
	}
	// loader tokens come from this gateway, so only it can check them
	if cfg.CDN.InjectCSRFLoader && !cfg.Gateway.VerifyCSRF {
		s.log.Warn().
			Str("csrf_endpoint", engines.Engine().Config().CSRFEndpointPath).
			Msg("CSRF loader is on but gateway.verify_csrf is off: backends cannot verify gateway-issued tokens")
	}

	app.Use(recover.New())
	app.Use(requestContext(s.log))
	app.Use(tracing())

	s.registerRoutes()

	return s
}

// App exposes the Fiber app, mostly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Start serves until ctx is done, then shuts down gracefully. Background
// jobs such as the config watcher share the server lifetime.
func (s *Server) Start(ctx context.Context, jobs ...func(context.Context) error) error {
	addr := s.cfg.Gateway.Address
	if addr == "" {
		addr = ":8080"
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info().Str("addr", addr).Msg("listening")
		if err := s.app.Listen(addr); err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Gateway.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return s.app.ShutdownWithContext(shutdownCtx)
	})

	for _, job := range jobs {
		g.Go(func() error { return job(gctx) })
	}

	return g.Wait()
}

func tokenTTL(raw string) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return 2 * time.Hour
}

// tracing opens one span per request; backend calls made with the
// request context become its children.
func tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := telemetry.Tracer().Start(c.UserContext(), c.Method()+" "+c.Path())
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.status_code", c.Response().StatusCode()),
			attribute.String("cdn.cache_control", string(c.Response().Header.Peek(fiber.HeaderCacheControl))),
		)
		return err
	}
}
