package middleware

import (
	"quiz-pilot/internal/service"
	"quiz-pilot/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	ValidatedRunIDKey = "validated_run_id"
	ValidatedLimitKey = "validated_limit"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateRunID validates the :id path parameter.
func (vm *ValidationMiddleware) ValidateRunID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if errors := vm.validator.ValidateRunID(id); len(errors) > 0 {
			return errors
		}
		c.Locals(ValidatedRunIDKey, id)
		return c.Next()
	}
}

// ValidateListParams validates the limit query parameter.
func (vm *ValidationMiddleware) ValidateListParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, errors := vm.validator.ParseListLimit(c.Query("limit"), service.DefaultRunListLimit)
		if len(errors) > 0 {
			return errors
		}
		c.Locals(ValidatedLimitKey, limit)
		return c.Next()
	}
}
