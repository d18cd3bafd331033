package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"cinescript/internal/models"
)

func (app *App) StartAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.Production.StartAnalysis(chi.URLParam(r, "projectID"))
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusAccepted, snapshot)
}

func (app *App) StartVideoHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.Production.StartVideo(chi.URLParam(r, "projectID"))
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusAccepted, snapshot)
}

func (app *App) EditStoryboardHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.Production.EditStoryboard(chi.URLParam(r, "projectID"))
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) ReplaceSceneHandler(w http.ResponseWriter, r *http.Request) {
	var scene models.MovieScene
	if err := json.NewDecoder(r.Body).Decode(&scene); err != nil {
		app.renderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := app.Production.ReplaceScene(chi.URLParam(r, "projectID"), &scene)
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) UpdateSubtitleHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		app.renderError(w, http.StatusBadRequest, "Invalid subtitle index")
		return
	}

	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.renderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := app.Production.UpdateSubtitle(chi.URLParam(r, "projectID"), index, req.Field, req.Value)
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) ResetProjectHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.Production.ResetProject(chi.URLParam(r, "projectID"))
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

// ProjectEventsHandler streams session updates as server-sent events until
// the client disconnects or the project is closed.
func (app *App) ProjectEventsHandler(w http.ResponseWriter, r *http.Request) {
	session, err := app.Production.Project(chi.URLParam(r, "projectID"))
	if err != nil {
		app.renderServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientGone := r.Context().Done()

	for {
		select {
		case update, ok := <-session.Updates():
			if !ok {
				return
			}

			data, err := json.Marshal(update.Data)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal update")
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.Type, string(data))
			flusher.Flush()

		case <-clientGone:
			return
		}
	}
}
