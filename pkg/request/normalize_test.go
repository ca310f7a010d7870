package request

import "testing"

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"gravistar.carto.com", "carto"},
		{"other.carto.com", "carto"},
		{"carto.com", "carto"},
		{"127.0.0.1:41234", "local"},
		{"localhost:8080", "local"},
		{"example.com", "example.com"},
	}

	for _, tt := range tests {
		got := normalizeProvider(tt.host)
		if got != tt.expected {
			t.Errorf("normalizeProvider(%q) = %q; want %q", tt.host, got, tt.expected)
		}
	}
}
