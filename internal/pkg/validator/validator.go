package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Shared validator instance to avoid creating multiple instances
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Product identifiers are SKU-style codes that end up in URLs and cache keys
	_ = validate.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
		return skuPattern.MatchString(fl.Field().String())
	})
}

// Get returns the shared validator instance
func Get() *validator.Validate {
	return validate
}
