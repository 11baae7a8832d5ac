package httpserver

import (
	"crypto/subtle"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cdnheaders/pkg/cache"
)

var sessionIDRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

// tokenIssuer hands out per-session CSRF tokens to the loader script that
// replaces the tokens stripped from cached pages.
type tokenIssuer struct {
	cache  *cache.Cache
	ttl    time.Duration
	cookie string
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func (t *tokenIssuer) handle(c *fiber.Ctx) error {
	sid := c.Cookies(t.cookie)
	if !sessionIDRe.MatchString(sid) {
		sid = newSessionID()
		c.Cookie(&fiber.Cookie{
			Name:     t.cookie,
			Value:    sid,
			Path:     "/",
			MaxAge:   int(t.ttl / time.Second),
			HTTPOnly: true,
			Secure:   c.Protocol() == "https",
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	var token string
	err := t.cache.Remember(c.UserContext(), t.cache.Key("csrf", sid), t.ttl, &token, func() (any, error) {
		return newToken(), nil
	})
	if err != nil {
		reqLogger(c).Error().Err(err).Msg("csrf token store failed")
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "token store unavailable"})
	}

	c.Set(fiber.HeaderCacheControl, "no-store, private")
	return c.JSON(fiber.Map{"csrf_token": token})
}

// verify checks the token sent with an unsafe request against the one
// issued to the session.
func (t *tokenIssuer) verify(c *fiber.Ctx) bool {
	sid := c.Cookies(t.cookie)
	if !sessionIDRe.MatchString(sid) {
		return false
	}
	var stored string
	ok, err := t.cache.GetJSON(c.UserContext(), t.cache.Key("csrf", sid), &stored)
	if err != nil || !ok {
		return false
	}
	got := c.Get("X-CSRF-Token")
	if got == "" {
		got = c.FormValue("_token")
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(stored)) == 1
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
