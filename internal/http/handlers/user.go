package handlers

import (
	"net/http"

	"inkwell/internal/domain"
	"inkwell/internal/middleware"
)

// GetUserCreations returns every creation owned by the caller, newest first.
func (a *App) GetUserCreations(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		a.fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	creations, err := a.Creations.ListByUser(r.Context(), auth.UserID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", auth.UserID).Msg("list user creations failed")
		a.fail(w, http.StatusInternalServerError, "failed to load creations")
		return
	}
	if creations == nil {
		creations = []domain.Creation{}
	}
	a.json(w, http.StatusOK, creationsResponse{Success: true, Creations: creations})
}

// GetPublishedCreations returns the community feed of published creations,
// newest first. The feed is shared across users and served from the cache
// when one is configured.
func (a *App) GetPublishedCreations(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.AuthFromContext(r.Context()); !ok {
		a.fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if cached, hit, err := a.Feed.Get(r.Context()); err != nil {
		a.Logger.Warn().Err(err).Msg("feed cache read failed")
	} else if hit {
		a.json(w, http.StatusOK, creationsResponse{Success: true, Creations: cached})
		return
	}
	creations, err := a.Creations.ListPublished(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("list published creations failed")
		a.fail(w, http.StatusInternalServerError, "failed to load creations")
		return
	}
	if creations == nil {
		creations = []domain.Creation{}
	}
	if err := a.Feed.Set(r.Context(), creations); err != nil {
		a.Logger.Warn().Err(err).Msg("feed cache write failed")
	}
	a.json(w, http.StatusOK, creationsResponse{Success: true, Creations: creations})
}
