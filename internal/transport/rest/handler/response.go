package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"okrdrift/internal/model"
	"okrdrift/internal/presentation"
	"okrdrift/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service and machine errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrOutcomeNotFound):
		return http.StatusNotFound
	case errors.Is(err, presentation.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, presentation.ErrInvalidStudentID),
		errors.Is(err, presentation.ErrEmptyGoal),
		errors.Is(err, presentation.ErrInvalidLevel),
		errors.Is(err, presentation.ErrInvalidTab):
		return http.StatusBadRequest
	}

	var reqErr *service.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Kind == model.ErrorNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
