package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"cinescript/internal/models"
	"cinescript/internal/production"
	"cinescript/internal/storage"
)

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type App struct {
	Production    *production.Service
	MaxUploadSize int64
}

func (app *App) renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (app *App) renderError(w http.ResponseWriter, status int, message string) {
	app.renderJSON(w, status, map[string]string{"error": message})
}

// renderServiceError maps the production sentinels onto HTTP statuses.
// Generation failures never pass through here; they land in the session
// error and travel inside snapshots and events.
func (app *App) renderServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, production.ErrProjectNotFound):
		app.renderError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, production.ErrIllegalPhase):
		app.renderError(w, http.StatusConflict, err.Error())
	case errors.Is(err, production.ErrInvalidInput):
		app.renderError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		app.renderError(w, http.StatusInternalServerError, "internal error")
	}
}

func (app *App) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := app.Production.CreateProject(r.Context())
	app.renderJSON(w, http.StatusCreated, snapshot)
}

func (app *App) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := app.Production.GetSnapshot(chi.URLParam(r, "projectID"))
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) CloseProjectHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Production.CloseProject(chi.URLParam(r, "projectID")); err != nil {
		app.renderServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) SubmitKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.renderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := app.Production.SubmitKey(r.Context(), chi.URLParam(r, "projectID"), req.APIKey)
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) UploadScreenplayHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		app.renderError(w, http.StatusBadRequest, "File too large")
		return
	}

	file, header, err := r.FormFile("screenplay")
	if err != nil {
		app.renderError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	snapshot, err := app.Production.AttachScreenplay(chi.URLParam(r, "projectID"), file, storage.FileInfo{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) UpdateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var patch models.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		app.renderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := app.Production.ApplyConfig(chi.URLParam(r, "projectID"), patch)
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) ToggleArchetypeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Archetype string `json:"archetype"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.renderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := app.Production.ToggleArchetype(chi.URLParam(r, "projectID"), req.Archetype)
	if err != nil {
		app.renderServiceError(w, err)
		return
	}
	app.renderJSON(w, http.StatusOK, snapshot)
}

func (app *App) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	app.renderJSON(w, http.StatusOK, map[string][]string{
		"genres":     models.Genres,
		"moods":      models.Moods,
		"cameras":    models.Cameras,
		"archetypes": models.Archetypes,
	})
}
