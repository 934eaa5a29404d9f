package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"savory/internal/store"

	"github.com/go-chi/chi/v5"
)

// storesPageSize is the number of stores per page on the directory listing.
const storesPageSize = 6

// tagChoices is the fixed set of tags a store form offers.
var tagChoices = []string{"Wifi", "Open Late", "Family Friendly", "Vegetarian", "Licensed"}

type CreateStorePayload struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=5000"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
	Address     string   `json:"address" validate:"required,max=500"`
	Lng         *float64 `json:"lng" validate:"required,min=-180,max=180"`
	Lat         *float64 `json:"lat" validate:"required,min=-90,max=90"`
}

func (app *application) createStoreHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateStorePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	st := &store.Store{
		AuthorID:    user.ID,
		Name:        app.sanitizer.Sanitize(payload.Name),
		Description: app.sanitizer.Sanitize(payload.Description),
		Tags:        payload.Tags,
		Location: store.Location{
			Type:        "Point",
			Coordinates: []float64{*payload.Lng, *payload.Lat},
			Address:     payload.Address,
		},
	}

	if err := app.store.Stores.Create(r.Context(), st); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, st); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateStorePayload struct {
	Name        *string   `json:"name" validate:"omitempty,max=255"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Tags        *[]string `json:"tags" validate:"omitempty,dive,max=50"`
	Address     *string   `json:"address" validate:"omitempty,max=500"`
	Lng         *float64  `json:"lng" validate:"omitempty,min=-180,max=180"`
	Lat         *float64  `json:"lat" validate:"omitempty,min=-90,max=90"`
}

func (app *application) updateStoreHandler(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid store ID"))
		return
	}

	var payload UpdateStorePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	current, err := app.ownedStore(ctx, w, r, storeID)
	if current == nil {
		return
	}

	updates := map[string]interface{}{}
	if payload.Name != nil {
		updates["name"] = app.sanitizer.Sanitize(*payload.Name)
	}
	if payload.Description != nil {
		updates["description"] = app.sanitizer.Sanitize(*payload.Description)
	}
	if payload.Tags != nil {
		updates["tags"] = *payload.Tags
	}
	if payload.Address != nil {
		updates["address"] = *payload.Address
	}
	if payload.Lng != nil || payload.Lat != nil {
		if payload.Lng == nil || payload.Lat == nil {
			app.badRequestResponse(w, r, fmt.Errorf("lng and lat must be supplied together"))
			return
		}
		updates["location"] = []float64{*payload.Lng, *payload.Lat}
	}
	if len(updates) == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("no fields to update"))
		return
	}

	if err := app.store.Stores.Update(ctx, storeID, updates); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, store.ErrConflict):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	updated, err := app.store.Stores.GetByID(ctx, storeID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

// storeFormHandler serves the metadata an "add store" form needs.
func (app *application) storeFormHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"title": "Add Store",
		"tags":  tagChoices,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// editStoreHandler returns the store for its edit form. Only the author may
// load it.
func (app *application) editStoreHandler(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid store ID"))
		return
	}

	st, _ := app.ownedStore(r.Context(), w, r, storeID)
	if st == nil {
		return
	}

	resp := map[string]interface{}{
		"store": st,
		"tags":  tagChoices,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

type storesPage struct {
	Stores []store.Store `json:"stores"`
	Page   int           `json:"page"`
	Pages  int           `json:"pages"`
	Count  int           `json:"count"`
}

// listStoresHandler serves the paginated directory. Asking for a page past
// the end redirects to the last page that exists rather than serving an
// empty list.
func (app *application) listStoresHandler(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := chi.URLParam(r, "page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			app.badRequestResponse(w, r, fmt.Errorf("invalid page number"))
			return
		}
		page = parsed
	}

	stores, total, err := app.store.Stores.List(r.Context(), page, storesPageSize)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pages := store.PageCount(total, storesPageSize)
	if len(stores) == 0 && total > 0 && page > pages {
		http.Redirect(w, r, fmt.Sprintf("/stores/page/%d", pages), http.StatusSeeOther)
		return
	}

	resp := storesPage{
		Stores: stores,
		Page:   page,
		Pages:  pages,
		Count:  total,
	}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getStoreBySlugHandler(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ctx := r.Context()

	st, err := app.store.Stores.GetBySlug(ctx, slug)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	reviews, err := app.store.Reviews.GetByStore(ctx, st.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	st.Reviews = reviews

	if err := app.jsonResponse(w, http.StatusOK, st); err != nil {
		app.internalServerError(w, r, err)
	}
}

type tagsPage struct {
	Tag    string           `json:"tag,omitempty"`
	Tags   []store.TagCount `json:"tags"`
	Stores []store.Store    `json:"stores"`
}

// tagsHandler serves the tag index. With no tag it lists every store that
// carries at least one tag; with a tag it lists the stores carrying it.
// The count buckets are returned either way so the tag cloud stays visible.
func (app *application) tagsHandler(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	ctx := r.Context()

	counts, err := app.store.Stores.TagCounts(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	stores, err := app.store.Stores.ByTag(ctx, tag)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := tagsPage{
		Tag:    tag,
		Tags:   counts,
		Stores: stores,
	}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) topStoresHandler(w http.ResponseWriter, r *http.Request) {
	stores, err := app.store.Stores.TopRated(r.Context(), 2, 10)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, stores); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) mapHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"title": "Map",
		"defaults": map[string]interface{}{
			"lat":  app.config.maps.lat,
			"lng":  app.config.maps.lng,
			"zoom": app.config.maps.zoom,
		},
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ownedStore loads a store and enforces that the requester is its author.
// On failure it has already written the response and returns nil.
func (app *application) ownedStore(ctx context.Context, w http.ResponseWriter, r *http.Request, storeID int64) (*store.Store, error) {
	st, err := app.store.Stores.GetByID(ctx, storeID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return nil, err
	}

	user := getUserFromContext(r)
	if st.AuthorID != user.ID {
		err := fmt.Errorf("you must own a store in order to edit it")
		app.forbiddenResponse(w, r, err)
		return nil, err
	}

	return st, nil
}
