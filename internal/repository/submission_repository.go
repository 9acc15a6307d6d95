package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/internal/service"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// SubmissionRepository provides data access for submissions using pgx.
type SubmissionRepository struct {
	pool PoolInterface
}

// NewSubmissionRepository creates a new SubmissionRepository with the given
// pool.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// NewSubmissionRepositoryWithPool creates a SubmissionRepository with a
// custom pool interface. This is primarily used for testing.
func NewSubmissionRepositoryWithPool(pool PoolInterface) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `id, event_id, team_id, user_id, project_title, description, tech_stack,
	repo_url, demo_url, status, total_score, submitted_at, reviewed_by, review_notes, created_at`

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var s model.Submission
	err := row.Scan(
		&s.ID, &s.EventID, &s.TeamID, &s.UserID, &s.ProjectTitle, &s.Description, &s.TechStack,
		&s.RepoURL, &s.DemoURL, &s.Status, &s.TotalScore, &s.SubmittedAt,
		&s.ReviewedBy, &s.ReviewNotes, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Insert inserts a new draft submission, assigning its id.
func (r *SubmissionRepository) Insert(ctx context.Context, submission *model.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submissions (id, event_id, team_id, user_id, project_title, description,
			tech_stack, repo_url, demo_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		submission.ID, submission.EventID, submission.TeamID, submission.UserID,
		submission.ProjectTitle, submission.Description, submission.TechStack,
		submission.RepoURL, submission.DemoURL, submission.Status)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission by id.
// Returns nil, nil if the submission is not found.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	submission, err := scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return submission, nil
}

// GetByIDForUpdate retrieves a submission with a row lock.
// Returns service.ErrSubmissionNotFound if the submission doesn't exist.
func (r *SubmissionRepository) GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Submission, error) {
	submission, err := scanSubmission(tx.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission for update %s: %w", id, err)
	}
	return submission, nil
}

// UpdateFields patches the non-nil project fields within a transaction.
func (r *SubmissionRepository) UpdateFields(ctx context.Context, tx database.TxQuerier, id string, req *model.UpdateSubmissionRequest) error {
	sets := []string{}
	args := []any{id}
	add := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("project_title", req.ProjectTitle)
	add("description", req.Description)
	add("tech_stack", req.TechStack)
	add("repo_url", req.RepoURL)
	add("demo_url", req.DemoURL)
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE submissions SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update submission %s: %w", id, err)
	}
	return nil
}

// UpdateStatus moves a submission to a new status within a transaction,
// stamping submitted_at and the review fields when provided.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id string, status model.SubmissionStatus, submittedAt *time.Time, reviewedBy, reviewNotes string) error {
	_, err := tx.Exec(ctx,
		`UPDATE submissions SET
			status = $2,
			submitted_at = COALESCE($3, submitted_at),
			reviewed_by = CASE WHEN $4 <> '' THEN $4 ELSE reviewed_by END,
			review_notes = CASE WHEN $5 <> '' THEN $5 ELSE review_notes END
		WHERE id = $1`,
		id, status, submittedAt, reviewedBy, reviewNotes)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	return nil
}

// SetTotalScore writes the recomputed weighted total within a transaction.
func (r *SubmissionRepository) SetTotalScore(ctx context.Context, tx database.TxQuerier, id string, total float64) error {
	_, err := tx.Exec(ctx, `UPDATE submissions SET total_score = $2 WHERE id = $1`, id, total)
	if err != nil {
		return fmt.Errorf("set total score for %s: %w", id, err)
	}
	return nil
}

// ListForRanking retrieves the leaderboard rows for an event. Drafts are
// excluded; the service applies the deterministic ordering.
func (r *SubmissionRepository) ListForRanking(ctx context.Context, eventID string) ([]model.RankingEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_title, team_id, total_score, submitted_at
		FROM submissions WHERE event_id = $1 AND status <> 'draft'`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list submissions for event %s: %w", eventID, err)
	}
	defer rows.Close()

	entries := []model.RankingEntry{}
	for rows.Next() {
		var e model.RankingEntry
		if err := rows.Scan(&e.SubmissionID, &e.ProjectTitle, &e.TeamID, &e.TotalScore, &e.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking rows: %w", err)
	}
	return entries, nil
}
