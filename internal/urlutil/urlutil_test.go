package urlutil

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("full URL", func(t *testing.T) {
		t.Parallel()

		c, err := Parse("HTTPS://Example.COM:8443/Docs/Guide?b=2&a=1#intro")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}

		if c.Scheme != "https" {
			t.Errorf("scheme = %q, want https", c.Scheme)
		}
		if c.Host != "example.com" {
			t.Errorf("host = %q, want example.com", c.Host)
		}
		if c.Port != 8443 {
			t.Errorf("port = %d, want 8443", c.Port)
		}
		if c.Path != "/Docs/Guide" {
			t.Errorf("path = %q, want /Docs/Guide", c.Path)
		}
		if c.Query != "b=2&a=1" {
			t.Errorf("query = %q, want b=2&a=1", c.Query)
		}
		if c.Fragment != "intro" {
			t.Errorf("fragment = %q, want intro", c.Fragment)
		}
	})

	t.Run("rejects other schemes", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"ftp://example.com/", "file:///etc/passwd", "not a url", ""} {
			if _, err := Parse(raw); !errors.Is(err, ErrMalformedURL) {
				t.Errorf("Parse(%q) should fail with ErrMalformedURL, got %v", raw, err)
			}
		}
	})

	t.Run("defaults path to root", func(t *testing.T) {
		t.Parallel()

		c, err := Parse("http://example.com")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if c.Path != "/" {
			t.Errorf("path = %q, want /", c.Path)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"spec boundary case",
			"https://EXAMPLE.COM:443/A/B/../C?z=1&a=2#x",
			"https://example.com/A/C?a=2&z=1",
		},
		{"default http port elided", "http://example.com:80/docs", "http://example.com/docs"},
		{"non-default port kept", "http://example.com:8080/docs", "http://example.com:8080/docs"},
		{"root path added", "https://example.com", "https://example.com/"},
		{"trailing slash stripped", "https://example.com/docs/", "https://example.com/docs"},
		{"dot segments", "https://example.com/a/./b/../c", "https://example.com/a/c"},
		{"empty segments", "https://example.com//a///b", "https://example.com/a/b"},
		{"leading dotdot clamped", "https://example.com/../a", "https://example.com/a"},
		{"bare key query", "https://example.com/?flag", "https://example.com/?flag"},
		{"unparseable returned as-is", "not a url", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Normalize(tt.in, false)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}

			// Idempotence: normalize(normalize(u)) == normalize(u).
			if again := Normalize(got, false); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}

	t.Run("keep fragment", func(t *testing.T) {
		t.Parallel()

		got := Normalize("https://example.com/docs#intro", true)
		if got != "https://example.com/docs#intro" {
			t.Errorf("got %q", got)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	base := "https://ex.com/docs/guide/page.html"

	tests := []struct {
		name string
		rel  string
		want string
	}{
		{"dotted relative", "../images/logo.png", "https://ex.com/docs/images/logo.png"},
		{"plain relative", "next.html", "https://ex.com/docs/guide/next.html"},
		{"root relative", "/api/ref", "https://ex.com/api/ref"},
		{"absolute", "https://other.com/x", "https://other.com/x"},
		{"protocol relative", "//cdn.ex.com/lib.js", "https://cdn.ex.com/lib.js"},
		{"query only", "?page=2", "https://ex.com/docs/guide/page.html?page=2"},
		{"fragment only", "#section", "https://ex.com/docs/guide/page.html"},
		{"empty", "", "https://ex.com/docs/guide/page.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(base, tt.rel)
			if err != nil {
				t.Fatalf("Resolve(%q, %q) failed: %v", base, tt.rel, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", base, tt.rel, got, tt.want)
			}
		})
	}

	t.Run("non-hierarchical schemes fail", func(t *testing.T) {
		t.Parallel()

		for _, rel := range []string{"mailto:a@b.c", "javascript:void(0)", "tel:+123"} {
			if _, err := Resolve(base, rel); err == nil {
				t.Errorf("Resolve(%q) should fail", rel)
			}
		}
	})
}

func TestInScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		domain string
		prefix string
		want   bool
	}{
		{"subdomain allowed", "https://docs.ex.com/p", "ex.com", "", true},
		{"exact domain allowed", "https://ex.com/p", "ex.com", "", true},
		{"other domain rejected", "https://evil.com", "ex.com", "", false},
		{"suffix trick rejected", "https://notex.com/p", "ex.com", "", false},
		{"prefix match", "https://ex.com/docs/guide", "ex.com", "/docs", true},
		{"prefix mismatch", "https://ex.com/blog/post", "ex.com", "/docs", false},
		{"unparseable rejected", "::", "ex.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := InScope(tt.url, tt.domain, tt.prefix); got != tt.want {
				t.Errorf("InScope(%q, %q, %q) = %v, want %v", tt.url, tt.domain, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	if got := ExtractDomain("https://Docs.Example.com:8080/a"); got != "docs.example.com" {
		t.Errorf("ExtractDomain = %q", got)
	}
	if got := ExtractPath("https://example.com/a/b?q=1"); got != "/a/b" {
		t.Errorf("ExtractPath = %q", got)
	}
	if got := ExtractDomain("junk"); got != "" {
		t.Errorf("ExtractDomain(junk) = %q, want empty", got)
	}

	origin, err := Origin("https://example.com:8443/a/b?x=1")
	if err != nil {
		t.Fatalf("Origin failed: %v", err)
	}
	if origin != "https://example.com:8443" {
		t.Errorf("Origin = %q", origin)
	}

	if !IsValidHTTPURL("http://example.com/") {
		t.Error("IsValidHTTPURL should accept http URLs")
	}
	if IsValidHTTPURL("gopher://example.com/") {
		t.Error("IsValidHTTPURL should reject gopher URLs")
	}
}
