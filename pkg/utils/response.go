package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"garage-backend/internal/models"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ServiceError maps the domain error taxonomy onto HTTP status codes.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation):
		JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		JSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrPreconditionFailed):
		JSONError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, models.ErrConflict):
		JSONError(w, http.StatusConflict, err.Error())
	default:
		JSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
