package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"savory/internal/store"

	"github.com/go-chi/chi/v5"
)

// toggleHeartHandler flips whether the requester has hearted the store and
// returns the requester's refreshed account, hearts included, so the client
// can repaint every heart button from one response.
func (app *application) toggleHeartHandler(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid store ID"))
		return
	}

	user := getUserFromContext(r)

	ctx := r.Context()

	if _, err := app.store.Stores.GetByID(ctx, storeID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	hearted, err := app.store.Hearts.Toggle(ctx, user.ID, storeID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	updated, err := app.store.Users.GetByID(ctx, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"hearted": hearted,
		"user":    updated,
	}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) listHeartsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	stores, err := app.store.Hearts.ListStores(r.Context(), user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, stores); err != nil {
		app.internalServerError(w, r, err)
	}
}
