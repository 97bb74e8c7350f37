package urlutil

import (
	"errors"
	"net/url"
	"testing"
)

func mustParseBase(t *testing.T, raw string) url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse base URL %q: %v", raw, err)
	}
	return *parsed
}

func TestResolve(t *testing.T) {
	base := mustParseBase(t, "https://docs.example.com/guide/intro")

	tests := []struct {
		name     string
		href     string
		expected string
		wantErr  bool
	}{
		{
			name:     "relative path",
			href:     "setup",
			expected: "https://docs.example.com/guide/setup",
		},
		{
			name:     "root relative path",
			href:     "/api/v1",
			expected: "https://docs.example.com/api/v1",
		},
		{
			name:     "already absolute",
			href:     "https://other.example.com/page",
			expected: "https://other.example.com/page",
		},
		{
			name:     "protocol relative inherits base scheme",
			href:     "//cdn.example.com/lib.js",
			expected: "https://cdn.example.com/lib.js",
		},
		{
			name:     "fragment is dropped",
			href:     "/guide/setup#install",
			expected: "https://docs.example.com/guide/setup",
		},
		{
			name:     "query is preserved",
			href:     "/search?q=term",
			expected: "https://docs.example.com/search?q=term",
		},
		{
			name:    "mailto is not crawlable",
			href:    "mailto:hello@example.com",
			wantErr: true,
		},
		{
			name:    "tel is not crawlable",
			href:    "tel:+15551234567",
			wantErr: true,
		},
		{
			name:    "javascript is not crawlable",
			href:    "javascript:void(0)",
			wantErr: true,
		},
		{
			name:    "empty href is not crawlable",
			href:    "",
			wantErr: true,
		},
		{
			name:    "whitespace only href is not crawlable",
			href:    "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(base, tt.href)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%q) expected error, got none", tt.href)
				}
				var notCrawlable *ErrNotCrawlable
				if !errors.As(err, &notCrawlable) {
					t.Fatalf("Resolve(%q) error = %v, want *ErrNotCrawlable", tt.href, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.href, err)
			}
			if got := resolved.String(); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.href, got, tt.expected)
			}
		})
	}
}
