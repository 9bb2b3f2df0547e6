package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/straye-as/sales-assistant/internal/auth"
	"github.com/straye-as/sales-assistant/internal/config"
	"go.uber.org/zap"
)

// RateLimiter holds rate limiting middleware and configuration
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	ipLimiter      func(http.Handler) http.Handler
	userLimiter    func(http.Handler) http.Handler
	whitelistIPs   map[string]bool
	whitelistPaths map[string]bool
	trustedProxies map[string]bool
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:            cfg,
		logger:         logger,
		whitelistIPs:   make(map[string]bool),
		whitelistPaths: make(map[string]bool),
		trustedProxies: make(map[string]bool),
	}

	for _, ip := range cfg.WhitelistIPs {
		rl.whitelistIPs[ip] = true
	}
	for _, path := range cfg.WhitelistPaths {
		rl.whitelistPaths[path] = true
	}
	for _, ip := range cfg.TrustedProxies {
		rl.trustedProxies[ip] = true
	}

	rl.ipLimiter = httprate.Limit(
		cfg.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(rl.keyByIP),
		httprate.WithLimitHandler(rl.rateLimitExceededHandler),
	)

	rl.userLimiter = httprate.Limit(
		cfg.RequestsPerMinuteAuth,
		time.Minute,
		httprate.WithKeyFuncs(rl.keyByUserOrIP),
		httprate.WithLimitHandler(rl.rateLimitExceededHandler),
	)

	logger.Info("Rate limiter initialized",
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("requests_per_minute_auth", cfg.RequestsPerMinuteAuth),
		zap.Strings("whitelist_ips", cfg.WhitelistIPs),
		zap.Strings("whitelist_paths", cfg.WhitelistPaths),
		zap.Strings("trusted_proxies", cfg.TrustedProxies),
	)

	return rl
}

// Limit applies the per-caller limit to authenticated requests and the per-IP
// limit to anonymous ones. Mount it after authentication.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}
	byIP := rl.ipLimiter(next)
	byCaller := rl.userLimiter(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case rl.exempt(r):
			next.ServeHTTP(w, r)
		case isAuthenticated(r):
			byCaller.ServeHTTP(w, r)
		default:
			byIP.ServeHTTP(w, r)
		}
	})
}

func (rl *RateLimiter) exempt(r *http.Request) bool {
	return rl.isPathWhitelisted(r.URL.Path) || rl.isIPWhitelisted(rl.getClientIP(r))
}

func isAuthenticated(r *http.Request) bool {
	_, ok := auth.FromContext(r.Context())
	return ok
}

func (rl *RateLimiter) keyByIP(r *http.Request) (string, error) {
	return "ip:" + rl.getClientIP(r), nil
}

// keyByUserOrIP keys authenticated requests by caller and the rest by client IP
func (rl *RateLimiter) keyByUserOrIP(r *http.Request) (string, error) {
	if caller, ok := auth.FromContext(r.Context()); ok && caller.ID != "" {
		return "caller:" + caller.ID, nil
	}
	return rl.keyByIP(r)
}

// getClientIP returns the peer address. Forwarding headers are only read when
// the peer is a trusted proxy, since any client can set them.
func (rl *RateLimiter) getClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !rl.trustedProxies[peer] {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return peer
}

// isIPWhitelisted checks if the IP is in the whitelist
func (rl *RateLimiter) isIPWhitelisted(ip string) bool {
	return rl.whitelistIPs[ip]
}

// isPathWhitelisted checks if the path is in the whitelist
func (rl *RateLimiter) isPathWhitelisted(path string) bool {
	// Check exact match
	if rl.whitelistPaths[path] {
		return true
	}

	// Check prefix match for paths ending with /*
	for wp := range rl.whitelistPaths {
		if strings.HasSuffix(wp, "/*") {
			prefix := strings.TrimSuffix(wp, "/*")
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}

	return false
}

// rateLimitExceededHandler handles rate limit exceeded responses
func (rl *RateLimiter) rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	clientIP := rl.getClientIP(r)
	callerID := ""
	if caller, ok := auth.FromContext(r.Context()); ok {
		callerID = caller.ID
	}

	rl.logger.Warn("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("client_ip", clientIP),
		zap.String("caller_id", callerID),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate limit exceeded","message":"Too many requests. Please try again later."}`))
}
