// Package metrics holds the Prometheus collectors of the edge header
// pipeline and the purge client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision outcomes.
const (
	OutcomeIneligible = "ineligible"
	OutcomeExcluded   = "excluded"
	OutcomeNoPolicy   = "no_policy"
	OutcomeCached     = "cached"
)

var (
	// Decisions counts pipeline runs by outcome.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdn_headers_decisions_total",
		Help: "Responses seen by the CDN header pipeline by outcome",
	}, []string{"outcome"})

	// RuleMatches counts resolved policies by the rule table that matched.
	RuleMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdn_headers_rule_matches_total",
		Help: "Resolved cache policies by match kind",
	}, []string{"matched_by"})

	// TokensRemoved counts HTML bodies that had CSRF tokens stripped.
	TokensRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cdn_headers_tokens_removed_total",
		Help: "HTML responses that had embedded CSRF tokens removed",
	})

	// LoaderInjected counts HTML bodies that received the CSRF loader.
	LoaderInjected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cdn_headers_loader_injected_total",
		Help: "HTML responses that received the CSRF loader script",
	})

	// PurgeRequests counts CDN purge calls by result.
	PurgeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdn_purge_requests_total",
		Help: "CDN purge API calls by result",
	}, []string{"result"})
)
