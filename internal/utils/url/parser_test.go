package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
		"  https://example.com/padded  ",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"", "   ", "ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %q", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://example.com/a/b", "/c", "https://example.com/c"},
		{"https://example.com/a/b", "c", "https://example.com/a/c"},
		{"https://example.com", "https://other.com/x", "https://other.com/x"},
		{"https://example.com/a/", "../up", "https://example.com/up"},
		{"https://example.com/a/", " spaced ", "https://example.com/a/spaced"},
		{"", "/rootless", "/rootless"},
	}
	for _, tc := range cases {
		if got := ResolveURL(tc.base, tc.href); got != tc.want {
			t.Errorf("ResolveURL(%s, %s) = %s, want %s", tc.base, tc.href, got, tc.want)
		}
	}
}
