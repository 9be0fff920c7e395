package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/strayspot/territories/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	e := d.Estimator

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Strays API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, d.Checks).Routes())
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(rateLimit(d.AuthRateLimit))
		r.Post("/register", handleRegister(logger, d.Store, d.Tokens))
		r.Post("/login", handleLogin(logger, d.Store, d.Tokens))
		r.With(requireAuth(d.Tokens)).Get("/me", handleMe(d.Store))
	})

	r.Route("/api/territory", func(r chi.Router) {
		r.Get("/ranges", handleRanges(e.Policy))
		r.Post("/check", handleCheck(e, d.Metrics))
		r.Post("/estimate", handleEstimate(e, d.Metrics))
	})

	r.Route("/api/animals", func(r chi.Router) {
		list := handleListAnimals(logger, d.Store)
		get := handleGetAnimal(logger, d.Store)

		r.Get("/", list)
		r.Get("/territories.geojson", handleTerritoriesGeoJSON(logger, d.Store))
		r.Get("/events", handleAnimalEvents(d.Broker))
		r.Get("/{id}", get)

		// Paths of the first version of the API.
		r.Get("/get/all", list)
		r.Get("/get/{id}", get)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(d.Tokens))

			create := handleCreateAnimal(logger, d.Store, e, d.Metrics, d.Broker)
			update := handleUpdateAnimal(logger, d.Store, e, d.Metrics, d.Broker)
			remove := handleDeleteAnimal(logger, d.Store, d.Broker)

			r.Post("/", create)
			r.Patch("/{id}", update)
			r.Delete("/{id}", remove)

			r.Post("/add-animal", create)
			r.Patch("/{id}/update", update)
			r.Delete("/found/{id}", remove)
		})
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
