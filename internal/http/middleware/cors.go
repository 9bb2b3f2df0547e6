package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/straye-as/sales-assistant/internal/config"
	"go.uber.org/zap"
)

// CORS returns a CORS middleware configured from the application config.
// The chat widget is embedded on arbitrary sites, so an empty origin list or
// "*" allows every origin.
func CORS(cfg *config.CORSConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	if allowsAll(cfg.AllowedOrigins) {
		// AllowOriginFunc echoes the origin back, which browsers require with credentials
		options.AllowOriginFunc = func(r *http.Request, origin string) bool {
			return origin != ""
		}
		logger.Info("CORS configured to allow all origins")
	} else {
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS configured with explicit origins",
			zap.Strings("origins", cfg.AllowedOrigins))
	}

	return cors.Handler(options)
}

func allowsAll(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
