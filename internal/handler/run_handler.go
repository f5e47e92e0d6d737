package handler

import (
	"strings"

	"quiz-pilot/internal/config"
	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/dto"
	"quiz-pilot/internal/logger"
	"quiz-pilot/internal/middleware"
	"quiz-pilot/internal/service"
	"quiz-pilot/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RunHandler handles run-related HTTP requests
type RunHandler struct {
	service   service.RunService
	student   config.StudentConfig
	validator *validation.Validator
}

// NewRunHandler creates a new RunHandler instance
func NewRunHandler(service service.RunService, student config.StudentConfig) *RunHandler {
	return &RunHandler{
		service:   service,
		student:   student,
		validator: validation.NewValidator(),
	}
}

// CreateRun godoc
// @Summary Start a quiz run
// @Description Queues a run that walks the quiz chain starting at url
// @Tags runs
// @Accept json
// @Produce json
// @Param request body dto.CreateRunRequest true "Run trigger"
// @Success 202 {object} dto.CreateRunResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /api/runs [post]
func (h *RunHandler) CreateRun(c *fiber.Ctx) error {
	var req dto.CreateRunRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be a JSON object")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.URL = strings.TrimSpace(req.URL)

	if errs := h.validator.ValidateCreateRunRequest(req.Email, req.Secret, req.URL); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.StartRun(c.UserContext(), req)
	if err != nil {
		return err
	}

	logger.Get().Info("Run queued",
		zap.String("run_id", resp.RunID),
		zap.String("url", resp.InitialURL),
	)
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// Phase1 godoc
// @Summary Start a run with the configured student
// @Description Compatibility trigger that uses the configured email and secret
// @Tags runs
// @Accept json
// @Produce json
// @Param request body dto.Phase1Request true "Quiz URL"
// @Success 200 {object} dto.Phase1Response
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /phase1 [post]
func (h *RunHandler) Phase1(c *fiber.Ctx) error {
	var req dto.Phase1Request
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be a JSON object")
	}
	req.URL = strings.TrimSpace(req.URL)
	if errs := h.validator.ValidateURL("url", req.URL); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.StartRun(c.UserContext(), dto.CreateRunRequest{
		Email:  h.student.Email,
		Secret: h.student.Secret,
		URL:    req.URL,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.Phase1Response{
		Status:     "worker started",
		InitialURL: resp.InitialURL,
	})
}

// ListRuns godoc
// @Summary List recent runs
// @Tags runs
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of runs (1-100)" default(20)
// @Success 200 {object} dto.RunListResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /api/runs [get]
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	limit, _ := c.Locals(middleware.ValidatedLimitKey).(int)
	resp, err := h.service.ListRuns(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetRun godoc
// @Summary Get a run with its steps
// @Tags runs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} dto.RunResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/runs/{id} [get]
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	id, _ := c.Locals(middleware.ValidatedRunIDKey).(string)
	if id == "" {
		id = c.Params("id")
	}
	resp, err := h.service.GetRun(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Extract godoc
// @Summary Preview extraction of a quiz page
// @Description Runs the extractor synchronously without solving or submitting
// @Tags extract
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ExtractRequest true "Quiz URL"
// @Success 200 {object} dto.ExtractResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /api/extract [post]
func (h *RunHandler) Extract(c *fiber.Ctx) error {
	var req dto.ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be a JSON object")
	}
	req.URL = strings.TrimSpace(req.URL)
	if errs := h.validator.ValidateURL("url", req.URL); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.PreviewExtraction(c.UserContext(), req.URL)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
