package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
)

// photoWidth is the width photos are resized down to before being stored.
const photoWidth = 800

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpeg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// uploadStorePhotoHandler accepts a multipart photo, resizes it and attaches
// it to the store. Only the store's author may replace its photo.
func (app *application) uploadStorePhotoHandler(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid store ID"))
		return
	}

	ctx := r.Context()

	st, _ := app.ownedStore(ctx, w, r, storeID)
	if st == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, app.config.uploads.maxBytes)
	if err := r.ParseMultipartForm(app.config.uploads.maxBytes); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("could not parse upload: %w", err))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("missing photo field: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedPhotoTypes[strings.ToLower(contentType)]
	if !ok {
		app.badRequestResponse(w, r, fmt.Errorf("file type %q isn't allowed", contentType))
		return
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("could not decode image: %w", err))
		return
	}

	// Height 0 keeps the aspect ratio. Images narrower than the target are
	// left alone.
	if img.Bounds().Dx() > photoWidth {
		img = imaging.Resize(img, photoWidth, 0, imaging.Lanczos)
	}

	user := getUserFromContext(r)
	filename := app.namer.Name(user.ID, ext)
	dest := filepath.Join(app.config.uploads.dir, filename)

	if err := imaging.Save(img, dest); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Stores.SetPhoto(ctx, storeID, filename); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	st.Photo = &filename

	if err := app.jsonResponse(w, http.StatusOK, st); err != nil {
		app.internalServerError(w, r, err)
	}
}
