package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"savory/internal/store"
)

const (
	searchResultLimit = 5
	nearbyLimit       = 10
	// nearbyMaxMeters bounds the proximity search when the caller does not
	// supply a radius.
	nearbyMaxMeters = 10000.0
)

func (app *application) searchStoresHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		app.jsonResponse(w, http.StatusOK, []store.StoreSummary{})
		return
	}

	results, err := app.store.Stores.SearchText(r.Context(), q, searchResultLimit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, results); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) nearbyStoresHandler(w http.ResponseWriter, r *http.Request) {
	lng, err := parseCoordinate(r.URL.Query().Get("lng"), -180, 180)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid lng: %w", err))
		return
	}
	lat, err := parseCoordinate(r.URL.Query().Get("lat"), -90, 90)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid lat: %w", err))
		return
	}

	results, err := app.store.Stores.FindNear(r.Context(), lng, lat, nearbyMaxMeters, nearbyLimit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, results); err != nil {
		app.internalServerError(w, r, err)
	}
}

func parseCoordinate(raw string, min, max float64) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%g out of range [%g, %g]", v, min, max)
	}
	return v, nil
}
