// Package handler wires HTTP routes to core services.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"igdm/internal/crypto"
	authhandler "igdm/internal/handler/auth"
	dmhandler "igdm/internal/handler/dm"
	middlewarePkg "igdm/internal/middleware"
	dmservice "igdm/internal/service/dm"
	"igdm/internal/session"
)

// NewRouter builds the full route tree.
func NewRouter(keys *crypto.KeyPairStore, sessions *session.Manager, engine *dmservice.Service, allowPlaintext bool, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)

	authHandler := authhandler.New(keys, sessions, allowPlaintext, log)
	dmHandler := dmhandler.New(engine, sessions, log)

	authHandler.RegisterRoutes(r)
	dmHandler.RegisterRoutes(r)
	dmHandler.RegisterWatchRoutes(r)

	return r
}
