package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vasiliy-maslov/gamestore-backend/internal/handler"
	"github.com/vasiliy-maslov/gamestore-backend/internal/metrics"
)

// NewRouter wires the HTTP surface. Catalog endpoints are public; cart,
// order and payment endpoints require a resolvable identity claim.
func NewRouter(orders *handler.OrderHandler, payments *handler.PaymentHandler, games *handler.CatalogHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	games.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(handler.Authenticate)
		orders.RegisterRoutes(r)
		payments.RegisterRoutes(r)
	})

	return r
}
