package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/services"
)

func writeJSON(w http.ResponseWriter, status int, resp models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// writeError maps the service taxonomy onto HTTP statuses, always with
// the standard envelope and a null data payload.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, models.APIResponse{Success: false, Message: err.Error(), Data: nil})
}

// bearerToken extracts the opaque token from the Authorization header.
func bearerToken(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
}
