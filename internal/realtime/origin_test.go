package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		origin   string
		want     bool
	}{
		{"empty list allows all", nil, "https://anything.test", true},
		{"star allows all", []string{"*"}, "http://localhost:8080", true},
		{"scheme glob", []string{"https://*", "http://*"}, "https://chat.example.com", true},
		{"scheme glob other scheme", []string{"https://*"}, "http://chat.example.com", false},
		{"exact", []string{"https://app.example.com"}, "https://app.example.com", true},
		{"exact is case insensitive", []string{"https://App.Example.com"}, "HTTPS://app.example.COM", true},
		{"exact mismatch", []string{"https://app.example.com"}, "https://app.example.com.evil.test", false},
		{"subdomain glob", []string{"https://*.example.com"}, "https://team.example.com", true},
		{"subdomain glob needs a label", []string{"https://*.example.com"}, "https://example.com", false},
		{"subdomain glob wrong suffix", []string{"https://*.example.com"}, "https://team.example.org", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewOriginPolicy(tt.patterns).Allowed(tt.origin))
		})
	}
}
