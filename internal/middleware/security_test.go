package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureHeaders(t *testing.T) {
	tests := []struct {
		name      string
		headers   *SecureHeaders
		tls       bool
		upgrade   bool
		wantHSTS  string
		wantCSP   string
		wantPerms bool
	}{
		{
			name:      "defaults over plain http",
			headers:   DefaultSecureHeaders(),
			wantCSP:   "default-src 'self'",
			wantPerms: true,
		},
		{
			name:      "hsts only under tls",
			headers:   DefaultSecureHeaders(),
			tls:       true,
			wantHSTS:  "max-age=63072000; includeSubDomains",
			wantCSP:   "default-src 'self'",
			wantPerms: true,
		},
		{
			name:    "dev mode relaxes",
			headers: &SecureHeaders{DevMode: true},
			wantCSP: "connect-src *",
		},
		{
			name:      "explicit csp wins",
			headers:   &SecureHeaders{ContentSecurityPolicy: "default-src 'none'"},
			wantCSP:   "default-src 'none'",
			wantPerms: true,
		},
		{
			name:    "websocket upgrade untouched",
			headers: DefaultSecureHeaders(),
			upgrade: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()
			tt.headers.Handler(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantHSTS, rec.Header().Get("Strict-Transport-Security"))
			if tt.wantCSP == "" {
				assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
			} else {
				assert.Contains(t, rec.Header().Get("Content-Security-Policy"), tt.wantCSP)
			}
			assert.Equal(t, tt.wantPerms, rec.Header().Get("Permissions-Policy") != "")
		})
	}
}

func TestSecureHeadersDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	DefaultSecureHeaders().Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.NotContains(t, rec.Header().Get("Content-Security-Policy"), "cdn")
}
