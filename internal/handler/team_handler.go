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

// TeamServiceInterface defines the interface for team business logic.
type TeamServiceInterface interface {
	CreateTeam(ctx context.Context, req *model.CreateTeamRequest) (*model.HackathonTeam, error)
	JoinTeam(ctx context.Context, req *model.JoinTeamRequest) (*model.HackathonTeam, error)
	RemoveMember(ctx context.Context, teamID, userID string) error
	DeleteTeam(ctx context.Context, teamID string) error
	Transition(ctx context.Context, teamID string, to model.TeamStatus) (*model.HackathonTeam, error)
	GetTeam(ctx context.Context, teamID string) (*model.TeamResponse, error)
}

// TeamHandler handles HTTP requests for team operations.
type TeamHandler struct {
	service   TeamServiceInterface
	validator *validator.Validate
}

// NewTeamHandler creates a new TeamHandler with the given service and
// validator.
func NewTeamHandler(svc TeamServiceInterface, v *validator.Validate) *TeamHandler {
	return &TeamHandler{service: svc, validator: v}
}

// CreateTeam handles POST /api/teams.
func (h *TeamHandler) CreateTeam(c *fiber.Ctx) error {
	var req model.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	team, err := h.service.CreateTeam(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrAlreadyInTeam):
			// The leader's membership row is created with the team, so the
			// one-team-per-event index can reject creation too.
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "user already belongs to a team for this event"})
		}
		log.Error().Err(err).Str("team_name", req.TeamName).Msg("failed to create team")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"team": team})
}

// JoinTeam handles POST /api/teams/join.
func (h *TeamHandler) JoinTeam(c *fiber.Ctx) error {
	var req model.JoinTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	team, err := h.service.JoinTeam(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTeamNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "team not found"})
		case errors.Is(err, service.ErrTeamFull):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "team is full"})
		case errors.Is(err, service.ErrTeamNotJoinable):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "team is no longer accepting members"})
		case errors.Is(err, service.ErrAlreadyInTeam):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "user already belongs to a team for this event"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("user_id", req.UserID).
			Msg("failed to join team")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("team_id", team.ID).
		Str("user_id", req.UserID).
		Int("member_count", team.MemberCount).
		Msg("user joined team")

	return c.JSON(fiber.Map{"team": team})
}

// GetTeam handles GET /api/teams/:id.
func (h *TeamHandler) GetTeam(c *fiber.Ctx) error {
	id := c.Params("id")
	resp, err := h.service.GetTeam(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTeamNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "team not found"})
		}
		log.Error().Err(err).Str("team_id", id).Msg("failed to get team")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(resp)
}

// RemoveMember handles DELETE /api/teams/:id/members/:userID.
func (h *TeamHandler) RemoveMember(c *fiber.Ctx) error {
	teamID := c.Params("id")
	userID := c.Params("userID")

	if err := h.service.RemoveMember(c.Context(), teamID, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrTeamNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "team not found"})
		case errors.Is(err, service.ErrMemberNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "team member not found"})
		case errors.Is(err, service.ErrLeaderRemoval):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "team leader cannot be removed"})
		}
		log.Error().Err(err).Str("team_id", teamID).Str("user_id", userID).Msg("failed to remove member")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}

// DeleteTeam handles DELETE /api/teams/:id.
func (h *TeamHandler) DeleteTeam(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteTeam(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrTeamNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "team not found"})
		}
		log.Error().Err(err).Str("team_id", id).Msg("failed to delete team")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}

// TransitionTeam handles PATCH /api/teams/:id/status.
func (h *TeamHandler) TransitionTeam(c *fiber.Ctx) error {
	id := c.Params("id")
	var req model.TransitionTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	team, err := h.service.Transition(c.Context(), id, model.TeamStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTeamNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "team not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("team_id", id).Str("status", req.Status).Msg("failed to transition team")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"team": team})
}
