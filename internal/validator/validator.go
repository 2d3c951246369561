// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"pocketledger/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("payment_type", validatePaymentType)
	}
}

func validatePaymentType(fl validator.FieldLevel) bool {
	return models.PaymentType(fl.Field().String()).Valid()
}
