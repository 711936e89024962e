// Package httpx is the local API of a foreground session.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"comprafacil/internal/auth"
	"comprafacil/internal/cart"
	"comprafacil/internal/logger"
	"comprafacil/internal/metrics"
	"comprafacil/internal/middleware"
	"comprafacil/internal/order"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Cart   cart.Service
	Orders order.Repository
	Device auth.SessionLoader
	// Owner is the user the session runs for; other users are refused.
	Owner   string
	Limiter *middleware.RateLimiter
	// Logout ends the session. It is called after the response is written.
	Logout func(ctx context.Context) error
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware, logger.LoggingMiddleware, metrics.InstrumentHandler)
	r.Use(chimw.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	h := &handlers{deps: d}
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.Device), h.ownerOnly)
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/lines", h.addToCart)
		r.Patch("/cart/lines/{id}", h.setQuantity)
		r.Delete("/cart/lines/{id}", h.removeLine)

		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.placeOrder)
		r.Get("/orders/{id}/history", h.statusHistory)

		r.Post("/session/logout", h.logout)
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
