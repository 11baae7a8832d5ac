package cdnheaders

import (
	"strconv"
	"strings"
	"time"
)

const (
	headerCacheControl     = "Cache-Control"
	headerSurrogateControl = "Surrogate-Control"
	headerSetCookie        = "Set-Cookie"
	headerVary             = "Vary"
)

// CacheControl builds the Cache-Control value for duration d.
func (e *Engine) CacheControl(d time.Duration) string {
	s := strconv.FormatInt(seconds(d), 10)
	directives := []string{"public", "max-age=" + s, "s-maxage=" + s}
	if e.cfg.StaleWhileRevalidate > 0 {
		directives = append(directives, "stale-while-revalidate="+strconv.FormatInt(seconds(e.cfg.StaleWhileRevalidate), 10))
	}
	if e.cfg.StaleIfError > 0 {
		directives = append(directives, "stale-if-error="+strconv.FormatInt(seconds(e.cfg.StaleIfError), 10))
	}
	return strings.Join(directives, ", ")
}

// ApplyHeaders makes res cacheable for d. Custom headers go last and
// overwrite anything set before them.
func (e *Engine) ApplyHeaders(res Response, d time.Duration) {
	h := res.Headers()
	h.Set(headerCacheControl, e.CacheControl(d))
	if e.cfg.SurrogateControl {
		h.Set(headerSurrogateControl, "max-age="+strconv.FormatInt(seconds(d), 10))
	}
	if e.cfg.RemoveCookies {
		h.Del(headerSetCookie)
	}
	if e.cfg.RemoveVaryCookie {
		removeVaryCookie(h)
	}
	for _, ch := range e.cfg.CustomHeaders {
		h.Set(ch.Name, ch.Value)
	}
}

// removeVaryCookie drops the "cookie" token from Vary and removes the
// header once nothing is left.
func removeVaryCookie(h Headers) {
	values := h.Values(headerVary)
	if len(values) == 0 {
		return
	}
	var kept []string
	for _, v := range values {
		for _, token := range strings.Split(v, ",") {
			token = strings.TrimSpace(token)
			if token == "" || strings.EqualFold(token, "cookie") {
				continue
			}
			kept = append(kept, token)
		}
	}
	if len(kept) == 0 {
		h.Del(headerVary)
		return
	}
	h.Set(headerVary, strings.Join(kept, ", "))
}
