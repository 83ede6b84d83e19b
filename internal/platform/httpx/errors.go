package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		notFound     *shared.NotFoundError
		forbidden    *shared.AuthorizationError
		invalid      *shared.ValidationError
		businessRule *shared.BusinessRuleError
		integrity    *shared.IntegrityError
		fieldErrs    validator.ValidationErrors
	)
	switch {
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "No encontrado", notFound.Msg)
	case errors.As(err, &forbidden):
		Problem(w, http.StatusForbidden, "Acceso denegado", forbidden.Msg)
	case errors.As(err, &invalid):
		Problem(w, http.StatusBadRequest, "Datos inválidos", invalid.Msg)
	case errors.As(err, &fieldErrs):
		Problem(w, http.StatusBadRequest, "Datos inválidos", fieldErrs.Error())
	case errors.As(err, &businessRule):
		Problem(w, http.StatusConflict, "Regla de negocio violada", businessRule.Msg)
	case errors.As(err, &integrity):
		Problem(w, http.StatusInternalServerError, "Inconsistencia de datos", integrity.Msg)
	default:
		Problem(w, http.StatusInternalServerError, "Error interno", "")
	}
}
