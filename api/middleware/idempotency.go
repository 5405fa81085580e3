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

	"github.com/haulpoints/haulpoints-backend/api/responses"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
	"github.com/haulpoints/haulpoints-backend/pkg/logger"
	pkgredis "github.com/haulpoints/haulpoints-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotentRoutes maps "METHOD pattern" to how long a replay window
// stays open. Checkout keeps its window longer because a duplicate
// there moves points.
var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/auth/register":            defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/sponsor/points":           defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/sponsor/recurring-awards": defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/admin/users":              defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout":                 criticalIdempotencyTTL,
}

// storedResponse is the replayable snapshot persisted per key.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency makes the covered mutation routes safe to retry. The
// first request with a given Idempotency-Key records its response; a
// retry with the same key and body replays that response, and a retry
// with the same key but a different body is rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, routePattern(r))
			if !covered || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			prior, err := loadStored(r, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if prior != nil {
				if prior.RequestHash != requestHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, prior)
				return
			}

			capture := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			payload, err := json.Marshal(capture.snapshot(requestHash))
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "marshal idempotency record", err)
				}
				return
			}
			if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func loadStored(r *http.Request, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	if raw == "" {
		return nil, nil
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	if ct := stored.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(stored.Status)
	if decoded, err := base64.StdEncoding.DecodeString(stored.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// requestScope binds the key to the actor and route so two users (or
// two endpoints) can never collide on the same client key.
func requestScope(r *http.Request) string {
	return strings.Join([]string{
		UserIDFromContext(r.Context()),
		OrgIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	ttl, ok := idempotentRoutes[method+" "+pattern]
	return ttl, ok
}

type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) snapshot(requestHash string) storedResponse {
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	snap := storedResponse{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(c.body.Bytes()),
		RequestHash: requestHash,
	}
	if ct := c.Header().Get("Content-Type"); ct != "" {
		snap.Headers = map[string]string{"Content-Type": ct}
	}
	return snap
}
