package validation

import (
	"strings"

	"garage-backend/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Struct validates a request DTO against its validate tags and maps
// failures onto the shared validation sentinel.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return models.Errorf(models.ErrValidation, "%v", err)
	}
	var fields []string
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" failed "+fe.Tag())
	}
	return models.Errorf(models.ErrValidation, "%s", strings.Join(fields, "; "))
}
