package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshlane/freshlane-backend/api/responses"
	"github.com/freshlane/freshlane-backend/pkg/config"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/redis"
)

type idempotencyRule struct {
	method   string
	pattern  string
	scope    string
	ttl      time.Duration
	required bool
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
	RequestHash string `json:"request_hash"`
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotency replays stored responses for repeated writes carrying the
// same Idempotency-Key. Checkout requires a key; registration honors one
// when provided.
func Idempotency(store redis.IdempotencyStore, cfg config.CheckoutConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := []idempotencyRule{
		{method: http.MethodPost, pattern: "/api/orders", scope: "checkout", ttl: cfg.IdempotencyTTL, required: true},
		{method: http.MethodPost, pattern: "/api/auth/register", scope: "register", ttl: 24 * time.Hour},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			rule, ok := matchRule(rules, r)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				if rule.required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read request body"))
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashValue(rule.scope + ":" + string(body))
			storageKey := store.IdempotencyKey(rule.scope, key)

			if raw, err := store.Get(ctx, storageKey); err == nil && raw != "" {
				var stored storedResponse
				if err := json.Unmarshal([]byte(raw), &stored); err == nil {
					if stored.RequestHash != requestHash {
						responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with a different request"))
						return
					}
					if logg != nil {
						logg.Info(logg.WithFields(ctx, map[string]any{"idempotency_scope": rule.scope}), "replaying stored response")
					}
					w.Header().Set("Content-Type", stored.ContentType)
					w.WriteHeader(stored.Status)
					_, _ = w.Write([]byte(stored.Body))
					return
				}
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r.WithContext(ctx))

			if capture.status == 0 {
				capture.status = http.StatusOK
			}
			// Only successful outcomes are replayable; failures may be retried.
			if capture.status >= 200 && capture.status < 300 {
				stored := storedResponse{
					Status:      capture.status,
					ContentType: capture.Header().Get("Content-Type"),
					Body:        capture.body.String(),
					RequestHash: requestHash,
				}
				if encoded, err := json.Marshal(stored); err == nil {
					if err := store.Set(ctx, storageKey, string(encoded), rule.ttl); err != nil && logg != nil {
						logg.Warn(ctx, "failed to persist idempotent response")
					}
				}
			}
		})
	}
}

func matchRule(rules []idempotencyRule, r *http.Request) (idempotencyRule, bool) {
	pattern := routePattern(r)
	for _, rule := range rules {
		if rule.method == r.Method && rule.pattern == pattern {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

func routePattern(r *http.Request) string {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		}
	}
	if len(pattern) > 1 {
		pattern = strings.TrimRight(pattern, "/")
	}
	return pattern
}
