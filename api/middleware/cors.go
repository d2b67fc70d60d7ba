package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
)

// CORS returns middleware that applies the configured allowed origin policy.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
