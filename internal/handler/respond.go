package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/yourorg/centerattend/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps domain error types to HTTP status codes. Unknown
// errors get a generic 500 so internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		duplicate  *domain.DuplicateError
		conflict   *domain.ConflictError
		partial    *domain.PartialRegistrationError
	)

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &duplicate):
		writeError(w, http.StatusConflict, duplicate.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Error())
	case errors.As(err, &partial):
		// The profile exists but the account half failed. Echo the profile
		// ID so the client can resume via the link endpoint.
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":     "registration incomplete, retry with the link endpoint",
			"profileId": partial.ProfileID,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return "invalid field " + first.Field()
	}
	return "invalid request"
}
