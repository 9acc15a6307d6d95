package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/internal/service"
)

// SubmissionServiceInterface defines the interface for submission lifecycle
// logic.
type SubmissionServiceInterface interface {
	Create(ctx context.Context, req *model.CreateSubmissionRequest) (*model.Submission, error)
	Get(ctx context.Context, id string) (*model.Submission, error)
	Update(ctx context.Context, id string, req *model.UpdateSubmissionRequest) (*model.Submission, error)
	Transition(ctx context.Context, id string, req *model.TransitionSubmissionRequest) (*model.Submission, error)
}

// SubmissionHandler handles HTTP requests for submission operations.
type SubmissionHandler struct {
	service   SubmissionServiceInterface
	validator *validator.Validate
}

// NewSubmissionHandler creates a new SubmissionHandler with the given
// service and validator.
func NewSubmissionHandler(svc SubmissionServiceInterface, v *validator.Validate) *SubmissionHandler {
	return &SubmissionHandler{service: svc, validator: v}
}

// CreateSubmission handles POST /api/submissions, creating a draft.
func (h *SubmissionHandler) CreateSubmission(c *fiber.Ctx) error {
	var req model.CreateSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	submission, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("event_id", req.EventID).Msg("failed to create submission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"submission": submission})
}

// GetSubmission handles GET /api/submissions/:id.
func (h *SubmissionHandler) GetSubmission(c *fiber.Ctx) error {
	id := c.Params("id")
	submission, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "submission not found"})
		}
		log.Error().Err(err).Str("submission_id", id).Msg("failed to get submission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"submission": submission})
}

// UpdateSubmission handles PATCH /api/submissions/:id. Rejected once review
// has started.
func (h *SubmissionHandler) UpdateSubmission(c *fiber.Ctx) error {
	id := c.Params("id")
	var req model.UpdateSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	submission, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "submission not found"})
		case errors.Is(err, service.ErrSubmissionLocked):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "submission is locked for review"})
		}
		log.Error().Err(err).Str("submission_id", id).Msg("failed to update submission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"submission": submission})
}

// TransitionSubmission handles POST /api/submissions/:id/status.
func (h *SubmissionHandler) TransitionSubmission(c *fiber.Ctx) error {
	id := c.Params("id")
	var req model.TransitionSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	submission, err := h.service.Transition(c.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "submission not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("submission_id", id).Str("status", req.Status).Msg("failed to transition submission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"submission": submission})
}
