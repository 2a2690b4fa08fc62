package controllers

import (
	"context"
	"net/http"

	"github.com/Gitttomo/AntiTextNext-sub000/api/responses"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/config"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AntiText-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every wired dependency answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AntiText-Env", cfg.App.Env)

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

// Pingers bundles the readiness dependencies by name.
func Pingers(db pinger, redis pinger) map[string]pinger {
	return map[string]pinger{"database": db, "redis": redis}
}
