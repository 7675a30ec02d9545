// routes.go wires the Query API's HTTP surface: the public GET endpoints
// spec.md §6 names, plus the admin ingestion-trigger surface guarded by
// middleware.AdminAuth. Grounded on the teacher's NewRouter (same
// global-middleware stack, same chi.Route grouping), generalized from the
// teacher's auth/paper/library/bookmark tree onto the Query Engine's four
// list_papers/get_paper/stats/health operations.
package http

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/randcorp/docscope/internal/middleware"
)

func NewRouter(handler *Handler, adminAuth *middleware.AdminAuth, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health)

	r.Route("/papers", func(r chi.Router) {
		r.Get("/", handler.ListPapers)
		r.Get("/{id}", handler.GetPaper)
	})
	r.Get("/stats", handler.Stats)
	r.Get("/sources/{source}/enrichment-fields", handler.EnrichmentFields)
	r.Get("/enrichment/data", handler.EnrichmentData)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", handler.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(adminAuth.Require)
			r.Post("/ingest/{source}", handler.AdminIngest)
		})
	})

	return r
}
