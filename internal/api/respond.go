package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/SigNoz/techstore-go-app/internal/middleware"
	"github.com/SigNoz/techstore-go-app/internal/services"
	"github.com/SigNoz/techstore-go-app/pkg/logger"
	"github.com/gorilla/mux"
)

const internalErrorMessage = "Internal server error"

// envelope is the JSON object written for most responses.
type envelope map[string]any

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to write response")
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{"error": message})
}

// respondError maps a service error onto its HTTP status. Unclassified
// errors are logged and hidden behind a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		respondMessage(w, statusFor(svcErr.Kind), svcErr.Message)
		return
	}

	logger.Error(r.Context()).
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("request failed")
	respondMessage(w, http.StatusInternalServerError, internalErrorMessage)
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, services.ErrValidation), errors.Is(kind, services.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(kind, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(kind, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into dst. An empty or malformed body
// is reported the way the storefront expects.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		respondMessage(w, http.StatusBadRequest, "No data provided")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "No data provided")
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}
