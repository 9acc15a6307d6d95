package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/internal/service"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// JudgingRepository provides data access for judges, criteria and scores
// using pgx.
type JudgingRepository struct {
	pool PoolInterface
}

// NewJudgingRepository creates a new JudgingRepository with the given pool.
func NewJudgingRepository(pool *pgxpool.Pool) *JudgingRepository {
	return &JudgingRepository{pool: pool}
}

// NewJudgingRepositoryWithPool creates a JudgingRepository with a custom pool
// interface. This is primarily used for testing.
func NewJudgingRepositoryWithPool(pool PoolInterface) *JudgingRepository {
	return &JudgingRepository{pool: pool}
}

// InsertJudge inserts a new judge, assigning its id.
// Returns service.ErrCodeCollision when the invite code is already taken.
func (r *JudgingRepository) InsertJudge(ctx context.Context, judge *model.Judge) error {
	if judge.ID == "" {
		judge.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO judges (id, event_id, name, email, invite_code, status, is_lead, assigned_teams, ordinal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		judge.ID, judge.EventID, judge.Name, judge.Email, judge.InviteCode,
		judge.Status, judge.IsLead, judge.AssignedTeams, judge.Order)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return service.ErrCodeCollision
		}
		return fmt.Errorf("insert judge: %w", err)
	}
	return nil
}

// GetJudgeByInviteCode retrieves a judge by invite code.
// Returns nil, nil if no judge has the code.
func (r *JudgingRepository) GetJudgeByInviteCode(ctx context.Context, code string) (*model.Judge, error) {
	var j model.Judge
	err := r.pool.QueryRow(ctx,
		`SELECT id, event_id, name, email, invite_code, status, is_lead, assigned_teams, ordinal, created_at
		FROM judges WHERE invite_code = $1`, code).Scan(
		&j.ID, &j.EventID, &j.Name, &j.Email, &j.InviteCode, &j.Status, &j.IsLead,
		&j.AssignedTeams, &j.Order, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get judge by invite code: %w", err)
	}
	return &j, nil
}

// UpdateJudgeStatus updates a judge's invitation status.
func (r *JudgingRepository) UpdateJudgeStatus(ctx context.Context, judgeID string, status model.JudgeStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE judges SET status = $2 WHERE id = $1`, judgeID, status)
	if err != nil {
		return fmt.Errorf("update judge status: %w", err)
	}
	return nil
}

// ListJudges retrieves an event's judges in display order.
func (r *JudgingRepository) ListJudges(ctx context.Context, eventID string) ([]model.Judge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, name, email, invite_code, status, is_lead, assigned_teams, ordinal, created_at
		FROM judges WHERE event_id = $1 ORDER BY ordinal, created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list judges for event %s: %w", eventID, err)
	}
	defer rows.Close()

	judges := []model.Judge{}
	for rows.Next() {
		var j model.Judge
		if err := rows.Scan(&j.ID, &j.EventID, &j.Name, &j.Email, &j.InviteCode,
			&j.Status, &j.IsLead, &j.AssignedTeams, &j.Order, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan judge row: %w", err)
		}
		judges = append(judges, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate judge rows: %w", err)
	}
	return judges, nil
}

// ReplaceCriteria swaps an event's rubric for a new one within a transaction,
// assigning ids to the new criteria.
// Returns service.ErrRubricInUse when scores already reference the old
// criteria; they would be orphaned by the swap.
func (r *JudgingRepository) ReplaceCriteria(ctx context.Context, tx database.TxQuerier, eventID string, criteria []model.JudgingCriteria) error {
	if _, err := tx.Exec(ctx, `DELETE FROM judging_criteria WHERE event_id = $1`, eventID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return service.ErrRubricInUse
		}
		return fmt.Errorf("clear criteria for event %s: %w", eventID, err)
	}
	for i := range criteria {
		c := &criteria[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO judging_criteria (id, event_id, name, max_score, weight, ordinal)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.EventID, c.Name, c.MaxScore, c.Weight, c.Order)
		if err != nil {
			return fmt.Errorf("insert criterion %s: %w", c.Name, err)
		}
	}
	return nil
}

// ListCriteria retrieves an event's rubric in display order. Accepts an open
// transaction so a total recompute reads criteria and scores from one
// snapshot; pass nil to read through the pool.
func (r *JudgingRepository) ListCriteria(ctx context.Context, tx database.TxQuerier, eventID string) ([]model.JudgingCriteria, error) {
	q := database.TxQuerier(r.pool)
	if tx != nil {
		q = tx
	}
	rows, err := q.Query(ctx,
		`SELECT id, event_id, name, max_score, weight, ordinal
		FROM judging_criteria WHERE event_id = $1 ORDER BY ordinal`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list criteria for event %s: %w", eventID, err)
	}
	defer rows.Close()

	criteria := []model.JudgingCriteria{}
	for rows.Next() {
		var c model.JudgingCriteria
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.MaxScore, &c.Weight, &c.Order); err != nil {
			return nil, fmt.Errorf("scan criterion row: %w", err)
		}
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate criteria rows: %w", err)
	}
	return criteria, nil
}

// GetCriteria retrieves one criterion by id.
// Returns nil, nil if the criterion is not found.
func (r *JudgingRepository) GetCriteria(ctx context.Context, criteriaID string) (*model.JudgingCriteria, error) {
	var c model.JudgingCriteria
	err := r.pool.QueryRow(ctx,
		`SELECT id, event_id, name, max_score, weight, ordinal FROM judging_criteria WHERE id = $1`,
		criteriaID).Scan(&c.ID, &c.EventID, &c.Name, &c.MaxScore, &c.Weight, &c.Order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get criterion %s: %w", criteriaID, err)
	}
	return &c, nil
}

// UpsertScore inserts or updates the score for the
// (judge, submission, criterion) triple within a transaction. Reports whether
// a new row was inserted; xmax = 0 only holds for rows created in the current
// transaction.
func (r *JudgingRepository) UpsertScore(ctx context.Context, tx database.TxQuerier, score *model.JudgeScore) (bool, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	var inserted bool
	err := tx.QueryRow(ctx,
		`INSERT INTO judge_scores (id, judge_id, submission_id, criteria_id, score, comment, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (judge_id, submission_id, criteria_id)
		DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment, scored_at = EXCLUDED.scored_at
		RETURNING id, (xmax = 0)`,
		score.ID, score.JudgeID, score.SubmissionID, score.CriteriaID,
		score.Score, score.Comment, score.ScoredAt).Scan(&score.ID, &inserted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			// judge_id and criteria_id both reference other tables; the
			// constraint name says which lookup failed.
			if strings.Contains(pgErr.ConstraintName, "judge_id") {
				return false, service.ErrJudgeNotFound
			}
			return false, service.ErrCriteriaNotFound
		}
		return false, fmt.Errorf("upsert score: %w", err)
	}
	return inserted, nil
}

// ListScoresBySubmission retrieves all score rows for a submission. Accepts
// the scoring transaction so a just-upserted row is visible to the recompute
// that follows it; pass nil to read through the pool.
func (r *JudgingRepository) ListScoresBySubmission(ctx context.Context, tx database.TxQuerier, submissionID string) ([]model.JudgeScore, error) {
	q := database.TxQuerier(r.pool)
	if tx != nil {
		q = tx
	}
	rows, err := q.Query(ctx,
		`SELECT id, judge_id, submission_id, criteria_id, score, comment, scored_at
		FROM judge_scores WHERE submission_id = $1 ORDER BY scored_at`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list scores for submission %s: %w", submissionID, err)
	}
	defer rows.Close()

	scores := []model.JudgeScore{}
	for rows.Next() {
		var sc model.JudgeScore
		if err := rows.Scan(&sc.ID, &sc.JudgeID, &sc.SubmissionID, &sc.CriteriaID,
			&sc.Score, &sc.Comment, &sc.ScoredAt); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		scores = append(scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return scores, nil
}
