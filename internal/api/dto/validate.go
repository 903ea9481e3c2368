package dto

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/solicitudes-service/pkg/util/errorutil"
)

var validate = validator.New()

// Validate runs struct validation and maps failures to the validation error
// taxonomy, before any repository call is attempted.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fields := map[string]any{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return apperrors.NewValidationError("invalid payload", fields)
}
