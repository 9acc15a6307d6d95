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

// JudgingServiceInterface defines the interface for judging business logic.
type JudgingServiceInterface interface {
	CreateJudge(ctx context.Context, req *model.CreateJudgeRequest) (*model.Judge, error)
	AcceptInvite(ctx context.Context, code string) (*model.Judge, error)
	ListJudges(ctx context.Context, eventID string) ([]model.Judge, error)
	SetCriteria(ctx context.Context, eventID string, req *model.SetCriteriaRequest) ([]model.JudgingCriteria, error)
	ListCriteria(ctx context.Context, eventID string) ([]model.JudgingCriteria, error)
	SubmitScore(ctx context.Context, req *model.SubmitScoreRequest) (*model.JudgeScore, bool, error)
	SubmitScores(ctx context.Context, req *model.BulkScoresRequest) ([]model.ScoreResult, error)
	Rankings(ctx context.Context, eventID string) ([]model.RankingEntry, error)
}

// JudgingHandler handles HTTP requests for judging operations.
type JudgingHandler struct {
	service   JudgingServiceInterface
	validator *validator.Validate
}

// NewJudgingHandler creates a new JudgingHandler with the given service and
// validator.
func NewJudgingHandler(svc JudgingServiceInterface, v *validator.Validate) *JudgingHandler {
	return &JudgingHandler{service: svc, validator: v}
}

// CreateJudge handles POST /api/judges.
func (h *JudgingHandler) CreateJudge(c *fiber.Ctx) error {
	var req model.CreateJudgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	judge, err := h.service.CreateJudge(c.Context(), &req)
	if err != nil {
		log.Error().Err(err).Str("event_id", req.EventID).Msg("failed to create judge")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"judge": judge})
}

// AcceptInvite handles POST /api/judges/accept.
func (h *JudgingHandler) AcceptInvite(c *fiber.Ctx) error {
	var req model.AcceptJudgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	judge, err := h.service.AcceptInvite(c.Context(), req.InviteCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJudgeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "judge not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Msg("failed to accept judge invite")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"judge": judge})
}

// ListJudges handles GET /api/events/:eventID/judges.
func (h *JudgingHandler) ListJudges(c *fiber.Ctx) error {
	eventID := c.Params("eventID")
	judges, err := h.service.ListJudges(c.Context(), eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("failed to list judges")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"judges": judges})
}

// SetCriteria handles PUT /api/events/:eventID/criteria, replacing the
// event's rubric.
func (h *JudgingHandler) SetCriteria(c *fiber.Ctx) error {
	eventID := c.Params("eventID")
	var req model.SetCriteriaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	criteria, err := h.service.SetCriteria(c.Context(), eventID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeightSum):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrRubricInUse):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "rubric already has recorded scores"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("event_id", eventID).Msg("failed to set criteria")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"criteria": criteria})
}

// ListCriteria handles GET /api/events/:eventID/criteria.
func (h *JudgingHandler) ListCriteria(c *fiber.Ctx) error {
	eventID := c.Params("eventID")
	criteria, err := h.service.ListCriteria(c.Context(), eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("failed to list criteria")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"criteria": criteria})
}

// SubmitScore handles POST /api/scores. Responds 201 when a new score row
// was inserted, 200 when an existing one was updated.
func (h *JudgingHandler) SubmitScore(c *fiber.Ctx) error {
	var req model.SubmitScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	score, inserted, err := h.service.SubmitScore(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJudgeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "judge not found"})
		case errors.Is(err, service.ErrCriteriaNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "judging criterion not found"})
		case errors.Is(err, service.ErrSubmissionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "submission not found"})
		case errors.Is(err, service.ErrScoreOutOfRange):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("judge_id", req.JudgeID).
			Str("submission_id", req.SubmissionID).
			Msg("failed to submit score")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	status := fiber.StatusOK
	if inserted {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"score": score})
}

// SubmitScores handles POST /api/scores/bulk. Items are applied
// independently; the response reports each outcome.
func (h *JudgingHandler) SubmitScores(c *fiber.Ctx) error {
	var req model.BulkScoresRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	results, err := h.service.SubmitScores(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Msg("failed to submit scores")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"results": results})
}

// Rankings handles GET /api/events/:eventID/rankings.
func (h *JudgingHandler) Rankings(c *fiber.Ctx) error {
	eventID := c.Params("eventID")
	rankings, err := h.service.Rankings(c.Context(), eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("failed to compute rankings")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"rankings": rankings})
}
