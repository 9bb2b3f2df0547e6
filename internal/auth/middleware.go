package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/logger"
	"go.uber.org/zap"
)

// serviceCaller is the identity attached to requests authenticated with the API key
var serviceCaller = Caller{
	ID:          "api-key",
	DisplayName: "",
	Roles:       []string{"api_service"},
	AuthType:    AuthTypeAPIKey,
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	jwtValidator *JWTValidator
	apiKey       string
	required     bool
	logger       *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.AuthConfig, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwtValidator: NewJWTValidator(cfg),
		apiKey:       cfg.APIKey,
		required:     cfg.Enabled,
		logger:       logger,
	}
}

// Chat returns the authentication policy for the chat endpoint: mandatory when
// auth is enabled, best effort otherwise
func (m *Middleware) Chat() func(http.Handler) http.Handler {
	if m.required {
		return m.Authenticate
	}
	return m.OptionalAuthenticate
}

// Authenticate rejects requests without a valid API key or bearer token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			caller := serviceCaller
			m.logAuthenticated(r, &caller, start)
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), &caller)))
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Unauthorized: missing or malformed authorization header", http.StatusUnauthorized)
			return
		}

		caller, err := m.jwtValidator.ValidateToken(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		m.logAuthenticated(r, caller, start)
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// OptionalAuthenticate attaches the caller when credentials are valid and
// otherwise lets the request through anonymously
func (m *Middleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if m.validateAPIKey(apiKey) {
				caller := serviceCaller
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), &caller)))
				return
			}
			m.logger.Debug("optional auth: invalid API key, continuing unauthenticated",
				zap.String("path", r.URL.Path),
			)
		}

		if token, ok := bearerToken(r); ok {
			caller, err := m.jwtValidator.ValidateToken(token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
				return
			}
			m.logger.Debug("optional auth: token validation failed, continuing unauthenticated",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the caller has one of the given roles
func (m *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, "Forbidden: no caller", http.StatusForbidden)
				return
			}
			for _, role := range roles {
				if caller.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		})
	}
}

func (m *Middleware) logAuthenticated(r *http.Request, caller *Caller, start time.Time) {
	log := logger.WithRequest(m.logger, r.Method, r.URL.Path, r.Header.Get("X-Request-ID"))
	logger.WithCaller(log, caller.ID, caller.DisplayName).Info("request authenticated",
		zap.String("auth_type", string(caller.AuthType)),
		zap.Strings("roles", caller.Roles),
		zap.Duration("auth_duration", time.Since(start)),
	)
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}
