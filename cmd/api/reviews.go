package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"savory/internal/store"

	"github.com/go-chi/chi/v5"
)

type CreateReviewPayload struct {
	Text   string `json:"text" validate:"required,max=2000"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

func (app *application) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid store ID"))
		return
	}

	var payload CreateReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
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

	review := &store.Review{
		StoreID:  storeID,
		AuthorID: user.ID,
		Text:     app.sanitizer.Sanitize(payload.Text),
		Rating:   payload.Rating,
	}

	if err := app.store.Reviews.Create(ctx, review); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	review.AuthorName = user.Name

	if err := app.jsonResponse(w, http.StatusCreated, review); err != nil {
		app.internalServerError(w, r, err)
	}
}
