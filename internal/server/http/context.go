package httpserver

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	headerRequestID = "X-Request-Id"
	localsLogger    = "logger"
)

var (
	reqStartUnix = time.Now().UnixNano()
	reqCounter   uint64
)

// makeReqID returns external X-Request-Id if provided, otherwise generates UUIDv4;
// if uuid generation fails, fallback to timestamp+counter.
func makeReqID(c *fiber.Ctx) string {
	if hdr := c.Get(headerRequestID); hdr != "" {
		return hdr
	}
	if v, err := uuid.NewRandom(); err == nil {
		return v.String()
	}
	n := atomic.AddUint64(&reqCounter, 1)
	return fmt.Sprintf("%x-%x", reqStartUnix, n)
}

// requestContext tags the request with an id and a logger carrying it.
func requestContext(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := makeReqID(c)
		c.Request().Header.Set(headerRequestID, id)
		c.Set(headerRequestID, id)
		l := base.With().Str("req_id", id).Logger()
		c.Locals(localsLogger, &l)
		return c.Next()
	}
}

func reqLogger(c *fiber.Ctx) *zerolog.Logger {
	if l, ok := c.Locals(localsLogger).(*zerolog.Logger); ok {
		return l
	}
	return &log.Logger
}
