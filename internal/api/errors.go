package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/daykeep/daykeep-api/internal/domain"
	"github.com/daykeep/daykeep-api/internal/platform/gist"
	"github.com/daykeep/daykeep-api/internal/store"
	enginesync "github.com/daykeep/daykeep-api/internal/sync"
)

// StatusForError maps domain, store, and remote errors to HTTP status
// codes. Unknown errors map to 500; handlers never expose their text to the
// client, only log them.
func StatusForError(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTaskTitleEmpty),
		errors.Is(err, domain.ErrInvalidRecurrence),
		errors.Is(err, domain.ErrValidation),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, enginesync.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, gist.ErrInvalidCredential):
		return http.StatusBadRequest
	case errors.Is(err, gist.ErrRemoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, gist.ErrMalformedRemoteData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
