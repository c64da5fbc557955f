// utils/validate.go
package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"arcade-economy-system/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs validator tags on a request DTO and converts failures
// into a single VALIDATION error listing the offending fields.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.Wrap(errs.CodeValidation, err, "invalid request")
	}

	var fields []string
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return errs.Newf(errs.CodeValidation, "invalid fields: %s", strings.Join(fields, ", "))
}
