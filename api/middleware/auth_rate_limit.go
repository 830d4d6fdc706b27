package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/freshlane/freshlane-backend/api/responses"
	"github.com/freshlane/freshlane-backend/pkg/config"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/redis"
)

// AuthRateLimitPolicy describes the fixed-window limits for one auth endpoint.
type AuthRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	EmailLimit int64
	IPLimit    int64
}

// LoginRateLimitPolicy builds the login policy from configuration.
func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Name:       "login",
		Window:     cfg.LoginWindow,
		EmailLimit: int64(cfg.LoginEmailLimit),
		IPLimit:    int64(cfg.LoginIPLimit),
	}
}

// RegisterRateLimitPolicy builds the registration policy from configuration.
func RegisterRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Name:       "register",
		Window:     cfg.RegisterWindow,
		EmailLimit: int64(cfg.RegisterEmailLimit),
		IPLimit:    int64(cfg.RegisterIPLimit),
	}
}

// AuthRateLimit enforces per-IP and per-email fixed-window limits on an
// auth endpoint. Limit checks fail open when Redis is unavailable so that
// a cache outage does not lock everyone out.
func AuthRateLimit(limiter redis.RateLimiter, policy AuthRateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if ip != "" && policy.IPLimit > 0 {
				allowed, count, err := limiter.FixedWindowAllow(ctx, policy.Name+":ip:"+ip, policy.IPLimit, policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(ctx, "rate limiter unavailable, allowing request")
					}
				} else if !allowed {
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{"limit_scope": "ip", "count": count})
						logg.Warn(ctx, "auth rate limit exceeded")
					}
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			email := extractEmail(r)
			if email != "" && policy.EmailLimit > 0 {
				allowed, count, err := limiter.FixedWindowAllow(ctx, policy.Name+":email:"+hashValue(email), policy.EmailLimit, policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(ctx, "rate limiter unavailable, allowing request")
					}
				} else if !allowed {
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{"limit_scope": "email", "count": count})
						logg.Warn(ctx, "auth rate limit exceeded")
					}
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractEmail peeks at the JSON body for an email field without
// consuming it. The body is restored for downstream handlers.
func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func hashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
