package dto

import (
	"todocalendar/internal/service"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const colorTag = "hexcolor,max=7"

// checkColor adds a field error when a sent color is not "#rgb" or "#rrggbb".
func checkColor(verr *service.ValidationError, field string, set bool, color string) {
	if set && validate.Var(color, colorTag) != nil {
		verr.Add(field, "Enter a valid hex color, e.g. #007bff.")
	}
}
