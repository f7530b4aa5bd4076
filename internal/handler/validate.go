package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FormValidator plugs validator/v10 into echo's c.Validate.
type FormValidator struct {
	v *validator.Validate
}

// NewFormValidator returns the validator installed as echo.Echo.Validator.
func NewFormValidator() *FormValidator {
	return &FormValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (fv *FormValidator) Validate(i interface{}) error {
	return fv.v.Struct(i)
}

// invalidField names the first field that failed validation and the rule
// it broke.  Fields are checked in declaration order.
func invalidField(err error) (field, tag string) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].StructField(), ve[0].Tag()
	}
	return "", ""
}
