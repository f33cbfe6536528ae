package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"header-rules/internal/models"
)

func TestURLFilter(t *testing.T) {
	tests := []struct {
		name    string
		pattern models.URLPattern
		want    string
	}{
		{"domain only", models.URLPattern{Domain: "example.com"}, "*://example.com/*"},
		{"star protocol", models.URLPattern{Protocol: "*", Domain: "example.com"}, "*://example.com/*"},
		{"https", models.URLPattern{Protocol: "https", Domain: "example.com"}, "https://example.com/*"},
		{"protocol with separator", models.URLPattern{Protocol: "HTTP://", Domain: "example.com"}, "http://example.com/*"},
		{"wildcard domain", models.URLPattern{Domain: "*.example.com"}, "*://*.example.com/*"},
		{"literal path", models.URLPattern{Domain: "example.com", Path: "/api"}, "*://example.com/api*"},
		{"wildcard path", models.URLPattern{Domain: "example.com", Path: "/api/*"}, "*://example.com/api/*"},
		{"inner wildcard", models.URLPattern{Domain: "example.com", Path: "/*/users"}, "*://example.com/*/users"},
		{"star path", models.URLPattern{Domain: "example.com", Path: "*"}, "*://example.com/*"},
		{"port", models.URLPattern{Domain: "localhost", Port: "8080", Path: "/health"}, "*://localhost:8080/health*"},
		{"star port", models.URLPattern{Domain: "localhost", Port: "*"}, "*://localhost/*"},
		{"domain case", models.URLPattern{Domain: "API.Example.COM"}, "*://api.example.com/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URLFilter(tt.pattern))
		})
	}
}
