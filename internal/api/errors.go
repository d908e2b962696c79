package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/coursetrack/internal/calendar"
	"example.com/coursetrack/internal/curriculum"
	"example.com/coursetrack/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeServiceError maps service failures onto HTTP statuses. Unreachable
// stores answer 503 so clients can switch to their offline view.
func writeServiceError(w http.ResponseWriter, err error) {
	var weekErr *calendar.InvalidWeekError
	switch {
	case domain.IsValidation(err),
		errors.As(err, &weekErr),
		errors.Is(err, curriculum.ErrInvalidContent),
		errors.Is(err, curriculum.ErrInvalidAnswers):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, curriculum.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "plan_not_found", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "progress store is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "persistence_error", "progress could not be saved or loaded")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
