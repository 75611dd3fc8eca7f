package controllers

import (
	"context"
	"net/http"

	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/pkg/config"
	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/redis"
)

// PubSubPinger exposes the broker health-check surface without pulling the
// pubsub client into every controller test.
type PubSubPinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GroupCart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports per-dependency status and degrades to 503 when any
// dependency is unreachable. Nil pingers are skipped so partial deployments
// can still report ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, brokerP PubSubPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GroupCart-Env", cfg.App.Env)

		status := map[string]string{"status": "ready"}
		healthy := true

		check := func(name string, ping func(context.Context) error) {
			if ping == nil {
				return
			}
			if err := ping(r.Context()); err != nil {
				healthy = false
				status[name] = "unreachable"
				if logg != nil {
					ctx := logg.WithField(r.Context(), "dependency", name)
					logg.Error(ctx, "readiness check failed", err)
				}
				return
			}
			status[name] = "ok"
		}

		if dbP != nil {
			check("database", dbP.Ping)
		}
		if redisP != nil {
			check("redis", redisP.Ping)
		}
		if brokerP != nil {
			check("pubsub", brokerP.Ping)
		}

		if !healthy {
			status["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
