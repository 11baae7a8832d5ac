package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts integer seconds ("3600") or a Go duration ("1h").
type Duration time.Duration

func parseDuration(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseInt(val, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative duration %q", val)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", val)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", val)
	}
	return d, nil
}

func (d *Duration) SetValue(s string) error {
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", n.Line)
	}
	if n.Tag == "!!null" {
		*d = 0
		return nil
	}
	return d.SetValue(n.Value)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// RuleSpec is one pattern with its cache lifetime. A nil TTL falls back to
// the default duration, an explicit 0 means max-age=0.
type RuleSpec struct {
	Pattern string    `yaml:"pattern"`
	TTL     *Duration `yaml:"ttl"`
}

// RuleList keeps rules in declaration order. In YAML it is either a mapping
// (pattern: ttl) or a sequence of {pattern, ttl} items or bare patterns; in
// the environment it is "pattern=ttl,pattern".
type RuleList []RuleSpec

func (l *RuleList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		out := make(RuleList, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			r := RuleSpec{Pattern: n.Content[i].Value}
			if v := n.Content[i+1]; v.Tag != "!!null" {
				var d Duration
				if err := v.Decode(&d); err != nil {
					return fmt.Errorf("rule %q: %w", r.Pattern, err)
				}
				r.TTL = &d
			}
			out = append(out, r)
		}
		*l = out
	case yaml.SequenceNode:
		out := make(RuleList, 0, len(n.Content))
		for _, item := range n.Content {
			var r RuleSpec
			if item.Kind == yaml.ScalarNode {
				r.Pattern = item.Value
			} else if err := item.Decode(&r); err != nil {
				return err
			}
			if r.Pattern == "" {
				return fmt.Errorf("line %d: rule without pattern", item.Line)
			}
			out = append(out, r)
		}
		*l = out
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*l = nil
			return nil
		}
		return l.SetValue(n.Value)
	default:
		return fmt.Errorf("line %d: unsupported rule list", n.Line)
	}
	return nil
}

func (l *RuleList) SetValue(s string) error {
	var out RuleList
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pattern, ttl, found := strings.Cut(part, "=")
		r := RuleSpec{Pattern: strings.TrimSpace(pattern)}
		if found && strings.TrimSpace(ttl) != "" {
			var d Duration
			if err := d.SetValue(ttl); err != nil {
				return fmt.Errorf("rule %q: %w", r.Pattern, err)
			}
			r.TTL = &d
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

func (l RuleList) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, r := range l {
		v := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		if r.TTL != nil {
			v = &yaml.Node{Kind: yaml.ScalarNode, Value: time.Duration(*r.TTL).String()}
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: r.Pattern}, v)
	}
	return n, nil
}

// HeaderSpec is a custom response header.
type HeaderSpec struct {
	Name  string
	Value string
}

// HeaderList is an ordered "Name: Value" mapping. The environment form is
// "Name:Value,Name:Value".
type HeaderList []HeaderSpec

func (l *HeaderList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		out := make(HeaderList, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			out = append(out, HeaderSpec{Name: n.Content[i].Value, Value: n.Content[i+1].Value})
		}
		*l = out
		return nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*l = nil
			return nil
		}
		return l.SetValue(n.Value)
	}
	return fmt.Errorf("line %d: custom headers must be a mapping", n.Line)
}

func (l *HeaderList) SetValue(s string) error {
	var out HeaderList
	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			if strings.TrimSpace(part) == "" {
				continue
			}
			return fmt.Errorf("invalid header %q", part)
		}
		out = append(out, HeaderSpec{Name: name, Value: strings.TrimSpace(value)})
	}
	*l = out
	return nil
}

func (l HeaderList) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, h := range l {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: h.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: h.Value},
		)
	}
	return n, nil
}

const loaderAuto = "auto"

// LoaderRoutes is either "auto" or a list of route patterns.
type LoaderRoutes []string

// Auto reports whether injection follows token removal.
func (l LoaderRoutes) Auto() bool {
	return len(l) == 1 && strings.EqualFold(l[0], loaderAuto)
}

func (l *LoaderRoutes) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*l = nil
			return nil
		}
		return l.SetValue(n.Value)
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: csrf_loader_routes must be \"auto\" or a list", n.Line)
}

func (l *LoaderRoutes) SetValue(s string) error {
	var out LoaderRoutes
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}
