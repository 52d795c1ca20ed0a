package provider

import "testing"

func TestContainsAbsoluteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"bare https", "summarize https://example.com/report please", true},
		{"bare http", "see http://internal.host/page", true},
		{"url only", "https://go.dev/blog/error-handling", true},
		{"url with query", "compare https://a.io/x?y=1&z=2 against the draft", true},
		{"no url", "write a post about our quarterly results", false},
		{"scheme-relative", "check //example.com/path for details", false},
		{"domain without scheme", "visit example.com for more", false},
		{"ftp scheme", "grab ftp://files.example.com/data.csv", false},
		{"empty", "", false},
		{"https prefix mid-word", "the word nothttps://x counts because the scheme matches", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ContainsAbsoluteURL(tt.in); got != tt.want {
				t.Errorf("ContainsAbsoluteURL(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
