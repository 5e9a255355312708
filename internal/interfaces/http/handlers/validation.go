package handlers

import (
	"github.com/go-playground/validator/v10"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
	"github.com/tasklane/tasklane/internal/shared/utils"
)

func init() {
	utils.RegisterValidation("access_level", func(fl validator.FieldLevel) bool {
		return entitlement.AccessLevel(fl.Field().String()).IsValid()
	})
}
