package cdnheaders

import (
	"cdnheaders/pkg/metrics"
)

// Outcome summarizes one pipeline run.
type Outcome struct {
	Eligible       bool
	Excluded       bool
	Policy         Policy
	Applied        bool
	TokensRemoved  bool
	LoaderInjected bool
}

// Process runs the whole pipeline over res. It expects to see a response
// once: running it again re-applies headers and custom header values.
func (e *Engine) Process(req Request, res Response) Outcome {
	var out Outcome
	if !e.Eligible(req) {
		metrics.Decisions.WithLabelValues(metrics.OutcomeIneligible).Inc()
		return out
	}
	out.Eligible = true

	if _, excluded := e.Excluded(req.RouteName); excluded {
		out.Excluded = true
		metrics.Decisions.WithLabelValues(metrics.OutcomeExcluded).Inc()
		return out
	}

	policy, ok := e.Resolve(req)
	if !ok {
		metrics.Decisions.WithLabelValues(metrics.OutcomeNoPolicy).Inc()
		return out
	}
	out.Policy = policy
	out.Applied = true
	metrics.Decisions.WithLabelValues(metrics.OutcomeCached).Inc()
	metrics.RuleMatches.WithLabelValues(string(policy.MatchedBy)).Inc()

	e.ApplyHeaders(res, policy.Duration)

	var sr SanitizationResult
	if e.cfg.RemoveCSRFTokens {
		sr = Sanitize(res)
	}
	out.TokensRemoved = sr.TokensRemoved
	if sr.TokensRemoved {
		metrics.TokensRemoved.Inc()
	}

	out.LoaderInjected = e.InjectLoader(res, sr, req)
	if out.LoaderInjected {
		metrics.LoaderInjected.Inc()
	}

	if e.cfg.Logging {
		e.log.Info().
			Str("route", req.RouteName).
			Str("path", req.Path).
			Int64("duration", seconds(policy.Duration)).
			Str("matched_by", string(policy.MatchedBy)).
			Str("cache_control", res.Headers().Get(headerCacheControl)).
			Bool("tokens_removed", out.TokensRemoved).
			Bool("loader_injected", out.LoaderInjected).
			Msg("CDN headers applied")
	}
	return out
}
