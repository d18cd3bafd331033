package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", app.OptionsHandler)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", app.CreateProjectHandler)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", app.GetProjectHandler)
				r.Delete("/", app.CloseProjectHandler)
				r.Post("/key", app.SubmitKeyHandler)
				r.Post("/screenplay", app.UploadScreenplayHandler)
				r.Patch("/config", app.UpdateConfigHandler)
				r.Post("/config/archetypes", app.ToggleArchetypeHandler)
				r.Post("/analysis", app.StartAnalysisHandler)
				r.Post("/video", app.StartVideoHandler)
				r.Post("/storyboard", app.EditStoryboardHandler)
				r.Put("/scene", app.ReplaceSceneHandler)
				r.Patch("/scene/subtitles/{index}", app.UpdateSubtitleHandler)
				r.Post("/reset", app.ResetProjectHandler)
				r.Get("/events", app.ProjectEventsHandler)
			})
		})
	})

	return r
}
