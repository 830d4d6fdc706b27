package controllers

import (
	"net/http"

	"github.com/freshlane/freshlane-backend/api/responses"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/redis"
)

// Healthz reports process liveness plus cache connectivity.
func Healthz(cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := map[string]string{"status": "ok"}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				status["cache"] = "unavailable"
				if logg != nil {
					logg.Warn(ctx, "health check: cache unreachable")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache unavailable"))
				return
			}
			status["cache"] = "ok"
		}

		responses.WriteSuccess(w, status)
	}
}
