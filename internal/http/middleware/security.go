package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/straye-as/sales-assistant/internal/config"
)

// SecurityHeaders returns a middleware that adds security headers to responses.
// The swagger UI relies on inline scripts, so it is served without a CSP.
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	hsts := ""
	if cfg.EnableHSTS {
		hsts = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			if cfg.ContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			if cfg.XSSProtection != "" {
				h.Set("X-XSS-Protection", cfg.XSSProtection)
			}
			if cfg.ContentSecurityPolicy != "" && !strings.HasPrefix(r.URL.Path, "/swagger/") {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if cfg.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", cfg.PermissionsPolicy)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}

			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}
