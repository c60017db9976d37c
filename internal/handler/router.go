package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/virtmarket/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	origins := h.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Encoding", custommiddleware.UsernameHeader},
		MaxAge:         300,
	}))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/servers", h.Servers)
		r.Get("/admin/check", h.AdminCheck)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/stats/servers", h.SellerStats)
			r.Get("/stats/buyers", h.BuyerStats)

			r.Group(func(r chi.Router) {
				r.Use(h.adminGuard.Middleware)

				r.Patch("/{id}", h.UpdateOrder)
				r.Patch("/{id}/approve", h.ApproveOrder)
				r.Patch("/{id}/reject", h.RejectOrder)
				r.Delete("/{id}", h.DeleteOrder)
			})
		})

		r.Route("/banned", func(r chi.Router) {
			r.Get("/{id}", h.CheckBan)

			r.Group(func(r chi.Router) {
				r.Use(h.adminGuard.Middleware)

				r.Get("/", h.ListBans)
				r.Post("/", h.BanUser)
				r.Delete("/{id}", h.UnbanUser)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, CodeNotFound, "route not found", nil)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), nil)
	})

	return r
}
