package httpserver

import (
	"testing"
)

func TestExpandPath(t *testing.T) {
	params := map[string]string{"id": "42", "slug": "a b"}
	lookup := func(name string) string { return params[name] }

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"no placeholders", "/posts", "/posts"},
		{"single", "/posts/{id}", "/posts/42"},
		{"escaped", "/posts/{id}/{slug}", "/posts/42/a%20b"},
		{"unknown param", "/x/{missing}", "/x/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandPath(tt.tpl, lookup); got != tt.want {
				t.Fatalf("expandPath(%q) = %q, want %q", tt.tpl, got, tt.want)
			}
		})
	}
}

func TestFiberPath(t *testing.T) {
	if got := fiberPath("/posts/{id}/comments/{cid}"); got != "/posts/:id/comments/:cid" {
		t.Fatalf("fiberPath = %q", got)
	}
	if got := fiberPath(""); got != "" {
		t.Fatalf("fiberPath empty = %q", got)
	}
}

func TestSingleJoinPath(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"", "", "/"},
		{"", "foo", "/foo"},
		{"foo", "", "/foo"},
		{"/foo/", "/bar", "/foo/bar"},
		{"foo", "bar", "foo/bar"},
	}
	for _, tt := range tests {
		if got := singleJoinPath(tt.a, tt.b); got != tt.want {
			t.Fatalf("singleJoinPath(%q,%q)=%q want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseBaseURL(t *testing.T) {
	u, err := parseBaseURL("localhost:9000/api")
	if err != nil {
		t.Fatalf("parseBaseURL: %v", err)
	}
	if u.Scheme != "http" || u.Host != "localhost:9000" || u.Path != "/api" {
		t.Fatalf("unexpected url %s", u)
	}
}
