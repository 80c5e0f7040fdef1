package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///", "", "not a url"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %q", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://example.com/a/b.html", "c.mp4", "https://example.com/a/c.mp4"},
		{"https://example.com/a/", "/v/1.mp4", "https://example.com/v/1.mp4"},
		{"https://example.com/", "https://cdn.example.com/x.mp4", "https://cdn.example.com/x.mp4"},
		{"https://example.com/", "  x.mp4 ", "https://example.com/x.mp4"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.href); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"https://cdn.example.com/v/clip.MP4?sig=1": ".mp4",
		"https://cdn.example.com/v/clip.webm":      ".webm",
		"https://cdn.example.com/watch":            "",
		"https://cdn.example.com/v/a.verylongext":  "",
	}
	for in, want := range tests {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://example.com:8443/x"); got != "example.com:8443" {
		t.Fatalf("unexpected host %q", got)
	}
	if got := Host("://bad"); got != "" {
		t.Fatalf("expected empty host, got %q", got)
	}
}
