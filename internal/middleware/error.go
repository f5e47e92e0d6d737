package middleware

import (
	"errors"
	"net/http"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse lists every invalid field.
type ValidationErrorResponse struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Status  int                      `json:"status"`
	Errors  []domain.ValidationError `json:"errors"`
}

var domainStatus = map[domain.ErrorCode]int{
	domain.CodeInvalidInput:     http.StatusBadRequest,
	domain.CodeValidation:       http.StatusBadRequest,
	domain.CodeMissingField:     http.StatusBadRequest,
	domain.CodeInvalidFormat:    http.StatusBadRequest,
	domain.CodeOutOfRange:       http.StatusBadRequest,
	domain.CodeExtractionFailed: http.StatusBadRequest,
	domain.CodeUnauthorized:     http.StatusUnauthorized,
	domain.CodeForbidden:        http.StatusForbidden,
	domain.CodeNotFound:         http.StatusNotFound,
	domain.CodeRunNotFound:      http.StatusNotFound,
	domain.CodeRunInProgress:    http.StatusConflict,
	domain.CodeQueueFull:        http.StatusServiceUnavailable,
	domain.CodeLLMServiceError:  http.StatusServiceUnavailable,
}

// HTTPStatus maps a domain error code to its response status. Unknown codes
// are server errors.
func HTTPStatus(code domain.ErrorCode) int {
	if status, ok := domainStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders errors returned by handlers and middleware. It is
// installed through fiber.Config.ErrorHandler.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if errs, ok := asValidationErrors(err); ok {
			logger.Get().Warn("Request validation failed",
				zap.String("path", c.Path()),
				zap.Int("error_count", len(errs)),
			)
			return c.Status(http.StatusBadRequest).JSON(ValidationErrorResponse{
				Code:    string(domain.CodeValidation),
				Message: "Request validation failed",
				Status:  http.StatusBadRequest,
				Errors:  errs,
			})
		}

		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return renderDomainError(c, domainErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			logger.Get().Warn("Fiber error",
				zap.String("path", c.Path()),
				zap.Int("status", fiberErr.Code),
				zap.String("message", fiberErr.Message),
			)
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Code:    "HTTP_ERROR",
				Message: fiberErr.Message,
				Status:  fiberErr.Code,
			})
		}

		logger.Get().Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    string(domain.CodeInternal),
			Message: "Internal server error",
			Status:  http.StatusInternalServerError,
		})
	}
}

func asValidationErrors(err error) (domain.ValidationErrors, bool) {
	var list domain.ValidationErrors
	if errors.As(err, &list) && len(list) > 0 {
		return list, true
	}
	var single domain.ValidationError
	if errors.As(err, &single) {
		return domain.ValidationErrors{single}, true
	}
	return nil, false
}

func renderDomainError(c *fiber.Ctx, domainErr *domain.DomainError) error {
	status := HTTPStatus(domainErr.Code)
	fields := []zap.Field{
		zap.String("path", c.Path()),
		zap.String("code", string(domainErr.Code)),
		zap.String("message", domainErr.Message),
		zap.Int("status", status),
		zap.Error(domainErr.Cause),
	}
	if status >= http.StatusInternalServerError {
		logger.Get().Error("Request failed", fields...)
	} else {
		logger.Get().Warn("Request rejected", fields...)
	}

	response := ErrorResponse{
		Code:    string(domainErr.Code),
		Message: domainErr.Message,
		Status:  status,
	}
	if len(domainErr.Context) > 0 {
		response.Details = domainErr.Context
	}
	return c.Status(status).JSON(response)
}
