package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/cakeverse/cakeverse-backend/api/responses"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	pkgredis "github.com/cakeverse/cakeverse-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inFlightTTL            = 2 * time.Minute

	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

// idempotentRoutes maps "METHOD template" to how long a response is kept.
// "{}" matches any single path segment. Money-moving routes keep their
// responses for a week.
var idempotentRoutes = map[string]time.Duration{
	"POST /api/v1/orders":                       defaultIdempotencyTTL,
	"POST /api/v1/orders/{}/complaints":         defaultIdempotencyTTL,
	"POST /api/v1/shop/orders/{}/status":        defaultIdempotencyTTL,
	"POST /api/v1/deposits":                     defaultIdempotencyTTL,
	"POST /api/v1/deposits/{}/cancel":           defaultIdempotencyTTL,
	"POST /api/v1/orders/{}/pay":                criticalIdempotencyTTL,
	"POST /api/v1/orders/{}/cancel":             criticalIdempotencyTTL,
	"POST /api/v1/orders/{}/complete":           criticalIdempotencyTTL,
	"POST /api/v1/withdrawals":                  criticalIdempotencyTTL,
	"POST /api/v1/withdrawals/{}/cancel":        criticalIdempotencyTTL,
	"POST /api/v1/ai/generations/charge":        criticalIdempotencyTTL,
	"POST /api/staff/v1/complaints/{}/approve":  criticalIdempotencyTTL,
	"POST /api/staff/v1/complaints/{}/reject":   criticalIdempotencyTTL,
	"POST /api/admin/v1/withdrawals/{}/confirm": criticalIdempotencyTTL,
	"POST /api/admin/v1/withdrawals/{}/reject":  criticalIdempotencyTTL,
}

type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency requires an Idempotency-Key on mutating routes and replays the
// first non-5xx response for the same user, route and key. A reused key with a
// different body, or one whose first request is still running, is refused.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" || len(clientKey) > 255 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required (max 255 chars)"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

			claimed, err := claim(r, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if !claimed {
				existing, err := load(r, store, key)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				switch {
				case existing == nil:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency record expired mid-request, retry"))
				case existing.RequestHash != hash:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case existing.InFlight:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
				default:
					replay(w, existing)
				}
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if err := store.Del(ctx, key); err != nil && logg != nil {
				logg.Error(ctx, "release idempotency claim", err)
			}
			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				return
			}
			record, _ := json.Marshal(storedResponse{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				RequestHash: hash,
			})
			if _, err := store.SetNX(ctx, key, string(record), ttl); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "idempotency_key", clientKey), "persist idempotent response", err)
			}
		})
	}
}

func claim(r *http.Request, store pkgredis.IdempotencyStore, key, hash string) (bool, error) {
	marker, _ := json.Marshal(storedResponse{InFlight: true, RequestHash: hash})
	ok, err := store.SetNX(r.Context(), key, string(marker), inFlightTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	return ok, nil
}

func load(r *http.Request, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record")
	}
	var rec storedResponse
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &rec, nil
}

func replay(w http.ResponseWriter, rec *storedResponse) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(rec.Status)
	if body, err := base64.StdEncoding.DecodeString(rec.Body); err == nil {
		_, _ = w.Write(body)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.RawStdEncoding.EncodeToString(sum[:])
}

// routePattern prefers chi's matched pattern; mount points still end in a
// wildcard before the subrouter runs, so those fall back to the raw path.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	path = strings.TrimSuffix(path, "/")
	for route, ttl := range idempotentRoutes {
		m, template, _ := strings.Cut(route, " ")
		if m == method && matchTemplate(template, path) {
			return ttl, true
		}
	}
	return 0, false
}

func matchTemplate(template, path string) bool {
	want := strings.Split(template, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] == "{}" {
			if got[i] == "" {
				return false
			}
			continue
		}
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
