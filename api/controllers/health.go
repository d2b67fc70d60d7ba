package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/pkg/config"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cakeverse-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every named dependency answers a ping.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cakeverse-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		failed := false
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = true
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "dependency", name), "readiness check failed: "+err.Error())
				}
				continue
			}
			checks[name] = "up"
		}

		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
