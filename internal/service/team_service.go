package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/pkg/database"
	"github.com/archduke1337/mindmesh-core/pkg/invitecode"
)

// codeAttempts bounds invite-code regeneration on unique-index collisions.
const codeAttempts = 5

// TeamRepositoryInterface defines the interface for team data access.
type TeamRepositoryInterface interface {
	InsertTeam(ctx context.Context, tx database.TxQuerier, team *model.HackathonTeam) error
	InsertMember(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error
	GetTeamByID(ctx context.Context, id string) (*model.HackathonTeam, error)
	GetTeamByIDForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error)
	GetTeamByInviteForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error)
	ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error)
	GetActiveMember(ctx context.Context, tx database.TxQuerier, teamID, userID string) (*model.TeamMember, error)
	AdjustMemberCount(ctx context.Context, tx database.TxQuerier, teamID string, delta int) error
	SetMemberStatus(ctx context.Context, tx database.TxQuerier, teamID, userID string, status model.MemberStatus) error
	UpdateTeamStatus(ctx context.Context, tx database.TxQuerier, teamID string, status model.TeamStatus) error
	DeleteMembers(ctx context.Context, tx database.TxQuerier, teamID string) error
	DeleteTeam(ctx context.Context, tx database.TxQuerier, teamID string) error
}

// teamTransitions is the team lifecycle state machine.
// disqualified and winner are terminal.
var teamTransitions = map[model.TeamStatus][]model.TeamStatus{
	model.TeamForming:   {model.TeamLocked, model.TeamDisqualified},
	model.TeamLocked:    {model.TeamSubmitted, model.TeamDisqualified},
	model.TeamSubmitted: {model.TeamWinner},
}

// TeamService provides team formation and membership logic.
type TeamService struct {
	pool           TxBeginner
	teams          TeamRepositoryInterface
	defaultMaxSize int
	codeLength     int
	now            func() time.Time
}

// NewTeamService creates a TeamService. defaultMaxSize applies when a create
// request omits max_size.
func NewTeamService(pool *pgxpool.Pool, teams TeamRepositoryInterface, defaultMaxSize, codeLength int) *TeamService {
	return NewTeamServiceWithTxBeginner(pool, teams, defaultMaxSize, codeLength, nil)
}

// NewTeamServiceWithTxBeginner creates a TeamService with a custom TxBeginner
// and clock. Primarily used for testing.
func NewTeamServiceWithTxBeginner(pool TxBeginner, teams TeamRepositoryInterface, defaultMaxSize, codeLength int, now func() time.Time) *TeamService {
	if now == nil {
		now = time.Now
	}
	return &TeamService{
		pool:           pool,
		teams:          teams,
		defaultMaxSize: defaultMaxSize,
		codeLength:     codeLength,
		now:            now,
	}
}

// CreateTeam creates a team and the leader's accepted membership row in one
// transaction; a team can never exist without its leader row. Invite-code
// collisions abort the transaction and retry with a fresh code.
func (s *TeamService) CreateTeam(ctx context.Context, req *model.CreateTeamRequest) (*model.HackathonTeam, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	maxSize := s.defaultMaxSize
	if req.MaxSize != nil {
		maxSize = *req.MaxSize
	}
	if maxSize < 1 {
		return nil, fmt.Errorf("%w: max_size must be at least 1", ErrInvalidRequest)
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := invitecode.Generate(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		team, err := s.createTeamTx(ctx, req, code, maxSize)
		if errors.Is(err, ErrCodeCollision) {
			continue
		}
		return team, err
	}
	return nil, ErrCodeCollision
}

func (s *TeamService) createTeamTx(ctx context.Context, req *model.CreateTeamRequest, code string, maxSize int) (*model.HackathonTeam, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	team := &model.HackathonTeam{
		EventID:     req.EventID,
		Name:        req.TeamName,
		LeaderID:    req.LeaderID,
		LeaderName:  req.LeaderName,
		LeaderEmail: req.LeaderEmail,
		InviteCode:  code,
		MemberCount: 1,
		MaxSize:     maxSize,
		Status:      model.TeamForming,
	}
	if err := s.teams.InsertTeam(ctx, tx, team); err != nil {
		return nil, err
	}

	leader := &model.TeamMember{
		TeamID:    team.ID,
		EventID:   req.EventID,
		UserID:    req.LeaderID,
		UserName:  req.LeaderName,
		UserEmail: req.LeaderEmail,
		Role:      model.RoleLeader,
		Status:    model.MemberAccepted,
		JoinedAt:  s.now(),
	}
	if err := s.teams.InsertMember(ctx, tx, leader); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit team creation: %w", err)
	}
	return team, nil
}

// JoinTeam adds a user to the team behind an invite code. The team row is
// locked for the capacity check and the counter increment, so two joins
// racing for the last slot yield exactly one success. The partial unique
// index on active memberships backstops the one-team-per-event rule.
func (s *TeamService) JoinTeam(ctx context.Context, req *model.JoinTeamRequest) (*model.HackathonTeam, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	team, err := s.teams.GetTeamByInviteForUpdate(ctx, tx, req.InviteCode)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team for update: %w", err)
	}

	// An invite code only resolves within its own event.
	if team.EventID != req.EventID {
		return nil, ErrTeamNotFound
	}
	if team.Status != model.TeamForming {
		return nil, ErrTeamNotJoinable
	}
	if team.MemberCount >= team.MaxSize {
		return nil, ErrTeamFull
	}

	member := &model.TeamMember{
		TeamID:    team.ID,
		EventID:   team.EventID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		Role:      model.RoleMember,
		Status:    model.MemberAccepted,
		JoinedAt:  s.now(),
	}
	if err := s.teams.InsertMember(ctx, tx, member); err != nil {
		if errors.Is(err, ErrAlreadyInTeam) {
			return nil, ErrAlreadyInTeam
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}
	if err := s.teams.AdjustMemberCount(ctx, tx, team.ID, 1); err != nil {
		return nil, fmt.Errorf("increment member count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}
	team.MemberCount++
	return team, nil
}

// RemoveMember marks a member removed and decrements the counter in one
// transaction. The leader cannot be removed; delete the team instead.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.teams.GetTeamByIDForUpdate(ctx, tx, teamID); err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("get team for update: %w", err)
	}

	member, err := s.teams.GetActiveMember(ctx, tx, teamID, userID)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return ErrMemberNotFound
	}
	if member.Role == model.RoleLeader {
		return ErrLeaderRemoval
	}

	if err := s.teams.SetMemberStatus(ctx, tx, teamID, userID, model.MemberRemoved); err != nil {
		return fmt.Errorf("set member status: %w", err)
	}
	if err := s.teams.AdjustMemberCount(ctx, tx, teamID, -1); err != nil {
		return fmt.Errorf("decrement member count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit removal: %w", err)
	}
	return nil
}

// DeleteTeam removes a team and all of its member rows. Member rows go first;
// the store has no cascading deletes.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.teams.GetTeamByIDForUpdate(ctx, tx, teamID); err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("get team for update: %w", err)
	}

	if err := s.teams.DeleteMembers(ctx, tx, teamID); err != nil {
		return fmt.Errorf("delete members: %w", err)
	}
	if err := s.teams.DeleteTeam(ctx, tx, teamID); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deletion: %w", err)
	}
	return nil
}

// Transition moves a team to a new lifecycle status, enforcing the state
// machine. Returns ErrInvalidTransition for moves the machine does not allow.
func (s *TeamService) Transition(ctx context.Context, teamID string, to model.TeamStatus) (*model.HackathonTeam, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	team, err := s.teams.GetTeamByIDForUpdate(ctx, tx, teamID)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team for update: %w", err)
	}

	if !transitionAllowed(teamTransitions[team.Status], to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, team.Status, to)
	}

	if err := s.teams.UpdateTeamStatus(ctx, tx, teamID, to); err != nil {
		return nil, fmt.Errorf("update team status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	team.Status = to
	return team, nil
}

// GetTeam retrieves a team with its member list.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (*model.TeamResponse, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	members, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return &model.TeamResponse{Team: team, Members: members}, nil
}

func transitionAllowed(allowed []model.TeamStatus, to model.TeamStatus) bool {
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
