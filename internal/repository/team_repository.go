package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/internal/service"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// TeamRepository provides data access for teams and memberships using pgx.
type TeamRepository struct {
	pool PoolInterface
}

// NewTeamRepository creates a new TeamRepository with the given pool.
func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

// NewTeamRepositoryWithPool creates a TeamRepository with a custom pool
// interface. This is primarily used for testing.
func NewTeamRepositoryWithPool(pool PoolInterface) *TeamRepository {
	return &TeamRepository{pool: pool}
}

const teamColumns = `id, event_id, name, leader_id, leader_name, leader_email, invite_code,
	member_count, max_size, status, created_at`

func scanTeam(row pgx.Row) (*model.HackathonTeam, error) {
	var t model.HackathonTeam
	err := row.Scan(
		&t.ID, &t.EventID, &t.Name, &t.LeaderID, &t.LeaderName, &t.LeaderEmail,
		&t.InviteCode, &t.MemberCount, &t.MaxSize, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTeam inserts a new team within a transaction, assigning its id.
// Returns service.ErrCodeCollision when the invite code is already taken.
func (r *TeamRepository) InsertTeam(ctx context.Context, tx database.TxQuerier, team *model.HackathonTeam) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO teams (id, event_id, name, leader_id, leader_name, leader_email, invite_code,
			member_count, max_size, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		team.ID, team.EventID, team.Name, team.LeaderID, team.LeaderName, team.LeaderEmail,
		team.InviteCode, team.MemberCount, team.MaxSize, team.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return service.ErrCodeCollision
		}
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

// InsertMember inserts a membership row within a transaction, assigning its
// id. The partial unique index on active memberships maps to
// service.ErrAlreadyInTeam.
func (r *TeamRepository) InsertMember(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO team_members (id, team_id, event_id, user_id, user_name, user_email, role, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		member.ID, member.TeamID, member.EventID, member.UserID, member.UserName, member.UserEmail,
		member.Role, member.Status, member.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return service.ErrAlreadyInTeam
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetTeamByID retrieves a team by id.
// Returns nil, nil if the team is not found (service layer handles this).
func (r *TeamRepository) GetTeamByID(ctx context.Context, id string) (*model.HackathonTeam, error) {
	team, err := scanTeam(r.pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team %s: %w", id, err)
	}
	return team, nil
}

// GetTeamByIDForUpdate retrieves a team by id with a row lock.
// Returns service.ErrTeamNotFound if the team doesn't exist.
func (r *TeamRepository) GetTeamByIDForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error) {
	team, err := scanTeam(tx.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team for update %s: %w", id, err)
	}
	return team, nil
}

// GetTeamByInviteForUpdate retrieves a team by invite code with a row lock.
// The lock serializes joins to the same team until the transaction completes.
// Returns service.ErrTeamNotFound if no team has the code.
func (r *TeamRepository) GetTeamByInviteForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error) {
	team, err := scanTeam(tx.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE invite_code = $1 FOR UPDATE`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team by invite for update: %w", err)
	}
	return team, nil
}

// ListMembers retrieves a team's accepted members, oldest first.
// On success, returns an empty slice (not nil) when no members exist.
func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, team_id, event_id, user_id, user_name, user_email, role, status, joined_at
		FROM team_members WHERE team_id = $1 AND status = 'accepted' ORDER BY joined_at`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members for team %s: %w", teamID, err)
	}
	defer rows.Close()

	members := []model.TeamMember{}
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.EventID, &m.UserID, &m.UserName, &m.UserEmail,
			&m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}

// GetActiveMember retrieves a team's accepted membership row for a user.
// Returns nil, nil when the user has no accepted membership in the team.
func (r *TeamRepository) GetActiveMember(ctx context.Context, tx database.TxQuerier, teamID, userID string) (*model.TeamMember, error) {
	var m model.TeamMember
	err := tx.QueryRow(ctx,
		`SELECT id, team_id, event_id, user_id, user_name, user_email, role, status, joined_at
		FROM team_members WHERE team_id = $1 AND user_id = $2 AND status = 'accepted'`,
		teamID, userID).Scan(&m.ID, &m.TeamID, &m.EventID, &m.UserID, &m.UserName, &m.UserEmail,
		&m.Role, &m.Status, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member %s of team %s: %w", userID, teamID, err)
	}
	return &m, nil
}

// AdjustMemberCount adds delta to member_count. Must be called within a
// transaction after locking the team row.
func (r *TeamRepository) AdjustMemberCount(ctx context.Context, tx database.TxQuerier, teamID string, delta int) error {
	_, err := tx.Exec(ctx,
		`UPDATE teams SET member_count = member_count + $2 WHERE id = $1`, teamID, delta)
	if err != nil {
		return fmt.Errorf("adjust member count for %s: %w", teamID, err)
	}
	return nil
}

// SetMemberStatus updates a user's membership status within a transaction.
func (r *TeamRepository) SetMemberStatus(ctx context.Context, tx database.TxQuerier, teamID, userID string, status model.MemberStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE team_members SET status = $3 WHERE team_id = $1 AND user_id = $2 AND status = 'accepted'`,
		teamID, userID, status)
	if err != nil {
		return fmt.Errorf("set member status: %w", err)
	}
	return nil
}

// UpdateTeamStatus updates a team's lifecycle status within a transaction.
func (r *TeamRepository) UpdateTeamStatus(ctx context.Context, tx database.TxQuerier, teamID string, status model.TeamStatus) error {
	_, err := tx.Exec(ctx, `UPDATE teams SET status = $2 WHERE id = $1`, teamID, status)
	if err != nil {
		return fmt.Errorf("update team status: %w", err)
	}
	return nil
}

// DeleteMembers removes all membership rows of a team. Must run before
// DeleteTeam; the store has no cascading deletes.
func (r *TeamRepository) DeleteMembers(ctx context.Context, tx database.TxQuerier, teamID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("delete members of team %s: %w", teamID, err)
	}
	return nil
}

// DeleteTeam removes the team row itself.
func (r *TeamRepository) DeleteTeam(ctx context.Context, tx database.TxQuerier, teamID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("delete team %s: %w", teamID, err)
	}
	return nil
}
