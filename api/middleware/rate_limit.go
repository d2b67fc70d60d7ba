package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// RateLimitStore counts requests per scope in a fixed window.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitScope chooses what a policy counts against.
type RateLimitScope string

const (
	RateLimitByUser RateLimitScope = "user"
	RateLimitByIP   RateLimitScope = "ip"
)

// RateLimitPolicy defines the throttling parameters for a traffic surface.
type RateLimitPolicy struct {
	name   string
	scope  RateLimitScope
	window time.Duration
	limit  int
}

// NewRateLimitPolicy builds a policy with the supplied window and limit.
func NewRateLimitPolicy(name string, scope RateLimitScope, window time.Duration, limit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		scope:  scope,
		window: window,
		limit:  limit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "default"
	}
	return p.name
}

func (p RateLimitPolicy) subject(r *http.Request) string {
	if p.scope == RateLimitByUser {
		if userID := UserIDFromContext(r.Context()); userID != "" {
			return "user:" + userID
		}
	}
	if ip := clientIP(r); ip != "" {
		return "ip:" + ip
	}
	return ""
}

// RateLimit counts requests per caller within a fixed window and rejects the
// ones over the limit with RATE_LIMITED.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject := policy.subject(r)
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := store.FixedWindowAllow(ctx, policy.normalizedName()+":"+subject, int64(policy.limit), policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				respondRateLimited(ctx, logg, w, policy, subject, count)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, subject string, count int64) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"subject":        subject,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          policy.limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
