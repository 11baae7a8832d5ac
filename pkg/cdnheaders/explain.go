package cdnheaders

import "net/http"

// Explanation is a dry run of the pipeline for one request.
type Explanation struct {
	Request         Request
	Eligible        bool
	Reason          string
	Excluded        bool
	ExcludedBy      string
	Policy          Policy
	Cacheable       bool
	Headers         []Header
	RemovesCookies  bool
	RemovesVary     bool
	SanitizesTokens bool
}

// Explain reports what the pipeline would do for req without a response.
// The headers come from running the header rewriter on an empty response,
// so they are the ones live traffic gets.
func (e *Engine) Explain(req Request) Explanation {
	ex := Explanation{Request: req, Reason: e.gate(req)}
	ex.Eligible = ex.Reason == ""
	if !ex.Eligible {
		return ex
	}
	if p, excluded := e.Excluded(req.RouteName); excluded {
		ex.Excluded = true
		ex.ExcludedBy = p
		return ex
	}
	policy, ok := e.Resolve(req)
	if !ok {
		return ex
	}
	ex.Policy = policy
	ex.Cacheable = true

	art := NewArtifact("", nil)
	e.ApplyHeaders(art, policy.Duration)
	names := []string{headerCacheControl}
	if e.cfg.SurrogateControl {
		names = append(names, headerSurrogateControl)
	}
	for _, h := range e.cfg.CustomHeaders {
		names = append(names, h.Name)
	}
	// a custom header may override one set above; list each name once
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := http.CanonicalHeaderKey(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		ex.Headers = append(ex.Headers, Header{Name: name, Value: art.Header.Get(name)})
	}
	ex.RemovesCookies = e.cfg.RemoveCookies
	ex.RemovesVary = e.cfg.RemoveVaryCookie
	ex.SanitizesTokens = e.cfg.RemoveCSRFTokens
	return ex
}
