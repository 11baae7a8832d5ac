// Package report renders the operator views of the header engine: the
// configuration status and the dry run of a single request.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"cdnheaders/pkg/cdnheaders"
)

// FormatDuration renders d the way operators read cache lifetimes.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	switch {
	case secs < 60:
		return strconv.FormatInt(secs, 10) + " seconds"
	case secs < 3600:
		return strconv.FormatFloat(math.Round(float64(secs)/60), 'f', -1, 64) + " minutes"
	case secs < 86400:
		return oneDecimal(float64(secs)/3600) + " hours"
	default:
		return oneDecimal(float64(secs)/86400) + " days"
	}
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func optional(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return strconv.FormatInt(int64(d/time.Second), 10) + " seconds"
}

// Status writes the configuration overview.
func Status(w io.Writer, cfg cdnheaders.Config) error {
	var b strings.Builder

	b.WriteString("CDN Headers Status\n")
	b.WriteString("==================\n\n")
	if cfg.Enabled {
		b.WriteString("Status: Enabled\n")
	} else {
		b.WriteString("Status: Disabled\n")
	}

	b.WriteString("\nSettings:\n")
	table(&b, []string{"Setting", "Value"}, [][]string{
		{"Skip Authenticated Users", yesNo(cfg.SkipAuthenticated)},
		{"Remove Cookies", yesNo(cfg.RemoveCookies)},
		{"Remove Vary Cookie", yesNo(cfg.RemoveVaryCookie)},
		{"Remove CSRF Tokens", yesNo(cfg.RemoveCSRFTokens)},
		{"Inject CSRF Loader", yesNo(cfg.InjectCSRFLoader)},
		{"Surrogate-Control", yesNo(cfg.SurrogateControl)},
		{"Logging Enabled", yesNo(cfg.Logging)},
		{"Default Duration", optional(cfg.DefaultDuration)},
		{"Stale-While-Revalidate", optional(cfg.StaleWhileRevalidate)},
		{"Stale-If-Error", optional(cfg.StaleIfError)},
	})

	if len(cfg.RouteRules) > 0 {
		b.WriteString("\nConfigured Routes:\n")
		table(&b, []string{"Route", "Cache Duration"}, ruleRows(cfg.RouteRules, cfg.DefaultDuration))
	}
	if len(cfg.PathRules) > 0 {
		b.WriteString("\nURL Patterns:\n")
		table(&b, []string{"Pattern", "Cache Duration"}, ruleRows(cfg.PathRules, cfg.DefaultDuration))
	}
	if len(cfg.ExcludedRoutes) > 0 {
		b.WriteString("\nExcluded Routes:\n")
		for _, r := range cfg.ExcludedRoutes {
			b.WriteString("  - " + r + "\n")
		}
	}
	if len(cfg.CustomHeaders) > 0 {
		b.WriteString("\nCustom Headers:\n")
		for _, h := range cfg.CustomHeaders {
			b.WriteString("  " + h.Name + ": " + h.Value + "\n")
		}
	}

	if cfg.InjectCSRFLoader {
		b.WriteString("\nCSRF Loader: ")
		if cfg.CSRFLoaderRoutes.Auto {
			b.WriteString("auto (pages that had tokens removed)\n")
		} else {
			b.WriteString(strings.Join(cfg.CSRFLoaderRoutes.Routes, ", ") + "\n")
		}
		b.WriteString("CSRF Endpoint: " + cfg.CSRFEndpointPath + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func ruleRows(rules []cdnheaders.Rule, def time.Duration) [][]string {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		d := r.Duration
		if r.UseDefault {
			d = def
		}
		rows = append(rows, []string{r.Pattern, FormatDuration(d)})
	}
	return rows
}

func table(b *strings.Builder, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  "+strings.Join(header, "\t"))
	seps := make([]string, len(header))
	for i, h := range header {
		seps[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, "  "+strings.Join(seps, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, "  "+strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

var matchLabels = map[cdnheaders.MatchKind]string{
	cdnheaders.MatchExactRoute:   "Route",
	cdnheaders.MatchRoutePattern: "Route Pattern",
	cdnheaders.MatchPathPattern:  "URL Pattern",
}

var reasonLabels = map[string]string{
	cdnheaders.ReasonDisabled:      "CDN headers are disabled",
	cdnheaders.ReasonMethod:        "only GET and HEAD responses are cached",
	cdnheaders.ReasonAuthenticated: "authenticated requests are skipped",
}

// Explain writes the dry run of one request.
func Explain(w io.Writer, target string, ex cdnheaders.Explanation) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Testing CDN headers for: %s\n", target)
	fmt.Fprintf(&b, "Method: %s\n\n", ex.Request.Method)
	route := ex.Request.RouteName
	if route == "" {
		route = "<no name>"
	}
	fmt.Fprintf(&b, "Matched Route: %s\n", route)

	switch {
	case !ex.Eligible:
		fmt.Fprintf(&b, "✗ Not eligible: %s\n", reasonLabels[ex.Reason])
	case ex.Excluded:
		fmt.Fprintf(&b, "⚠ This route is EXCLUDED from CDN caching (%s)\n", ex.ExcludedBy)
	case ex.Cacheable:
		b.WriteString("✓ This route WILL have CDN headers\n")
		fmt.Fprintf(&b, "Matched by: %s: %s\n", matchLabels[ex.Policy.MatchedBy], ex.Policy.Pattern)
		fmt.Fprintf(&b, "Cache duration: %s\n", FormatDuration(ex.Policy.Duration))
		b.WriteString("\nHeaders that will be set:\n")
		for _, h := range ex.Headers {
			fmt.Fprintf(&b, "  %s: %s\n", h.Name, h.Value)
		}
		var notes []string
		if ex.RemovesCookies {
			notes = append(notes, "Set-Cookie headers will be removed")
		}
		if ex.RemovesVary {
			notes = append(notes, "Cookie will be dropped from Vary")
		}
		if ex.SanitizesTokens {
			notes = append(notes, "CSRF tokens will be stripped from HTML")
		}
		if len(notes) > 0 {
			b.WriteString("\n")
			for _, n := range notes {
				b.WriteString("Note: " + n + "\n")
			}
		}
	default:
		b.WriteString("✗ This route will NOT have CDN headers\n")
		b.WriteString("Add a route or URL pattern rule to enable caching.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
