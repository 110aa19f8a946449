// Package validator provides the shared go-playground validator instance with
// the ledger's custom tags registered.
package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"wallet/internal/models"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Get returns the shared validator with custom tags registered.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("currency", validateCurrency)
		_ = validate.RegisterValidation("account_type", validateAccountType)
		_ = validate.RegisterValidation("timezone", validateTimezone)
	})
	return validate
}

// Struct validates s using the shared instance.
func Struct(s interface{}) error {
	return Get().Struct(s)
}

func validateCurrency(fl validator.FieldLevel) bool {
	return models.Currency(fl.Field().String()).Valid()
}

func validateAccountType(fl validator.FieldLevel) bool {
	return models.AccountType(fl.Field().String()).Valid()
}

func validateTimezone(fl validator.FieldLevel) bool {
	return models.Timezone(fl.Field().String()).Valid()
}
