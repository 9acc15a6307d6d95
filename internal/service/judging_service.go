package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/pkg/database"
	"github.com/archduke1337/mindmesh-core/pkg/invitecode"
)

// weightTolerance is the float slack allowed when rubric weights are summed.
const weightTolerance = 1e-9

// JudgingRepositoryInterface defines the interface for judge, criteria and
// score data access.
type JudgingRepositoryInterface interface {
	InsertJudge(ctx context.Context, judge *model.Judge) error
	GetJudgeByInviteCode(ctx context.Context, code string) (*model.Judge, error)
	UpdateJudgeStatus(ctx context.Context, judgeID string, status model.JudgeStatus) error
	ListJudges(ctx context.Context, eventID string) ([]model.Judge, error)
	ReplaceCriteria(ctx context.Context, tx database.TxQuerier, eventID string, criteria []model.JudgingCriteria) error
	ListCriteria(ctx context.Context, tx database.TxQuerier, eventID string) ([]model.JudgingCriteria, error)
	GetCriteria(ctx context.Context, criteriaID string) (*model.JudgingCriteria, error)
	UpsertScore(ctx context.Context, tx database.TxQuerier, score *model.JudgeScore) (inserted bool, err error)
	ListScoresBySubmission(ctx context.Context, tx database.TxQuerier, submissionID string) ([]model.JudgeScore, error)
}

// JudgingService provides judge management, score upserts and weighted
// aggregation.
type JudgingService struct {
	pool        TxBeginner
	judging     JudgingRepositoryInterface
	submissions SubmissionRepositoryInterface
	codeLength  int
	now         func() time.Time
}

// NewJudgingService creates a JudgingService.
func NewJudgingService(pool *pgxpool.Pool, judging JudgingRepositoryInterface, submissions SubmissionRepositoryInterface, codeLength int) *JudgingService {
	return NewJudgingServiceWithTxBeginner(pool, judging, submissions, codeLength, nil)
}

// NewJudgingServiceWithTxBeginner creates a JudgingService with a custom
// TxBeginner and clock. Primarily used for testing.
func NewJudgingServiceWithTxBeginner(pool TxBeginner, judging JudgingRepositoryInterface, submissions SubmissionRepositoryInterface, codeLength int, now func() time.Time) *JudgingService {
	if now == nil {
		now = time.Now
	}
	return &JudgingService{
		pool:        pool,
		judging:     judging,
		submissions: submissions,
		codeLength:  codeLength,
		now:         now,
	}
}

// CreateJudge invites a judge, generating a unique invite code. Collisions
// with existing codes retry with a fresh code.
func (s *JudgingService) CreateJudge(ctx context.Context, req *model.CreateJudgeRequest) (*model.Judge, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	assigned := req.AssignedTeams
	if assigned == nil {
		// The column is NOT NULL; an empty list means the judge covers every team.
		assigned = []string{}
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := invitecode.Generate(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		judge := &model.Judge{
			EventID:       req.EventID,
			Name:          req.Name,
			Email:         req.Email,
			InviteCode:    code,
			Status:        model.JudgeInvited,
			IsLead:        req.IsLead,
			AssignedTeams: assigned,
			Order:         req.Order,
		}
		err = s.judging.InsertJudge(ctx, judge)
		if errors.Is(err, ErrCodeCollision) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert judge: %w", err)
		}
		return judge, nil
	}
	return nil, ErrCodeCollision
}

// AcceptInvite marks the judge behind an invite code as accepted.
// Accepting twice is a no-op; a declined invitation cannot be accepted.
func (s *JudgingService) AcceptInvite(ctx context.Context, code string) (*model.Judge, error) {
	judge, err := s.judging.GetJudgeByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get judge: %w", err)
	}
	if judge == nil {
		return nil, ErrJudgeNotFound
	}
	switch judge.Status {
	case model.JudgeAccepted:
		return judge, nil
	case model.JudgeDeclined:
		return nil, fmt.Errorf("%w: invitation was declined", ErrInvalidTransition)
	}
	if err := s.judging.UpdateJudgeStatus(ctx, judge.ID, model.JudgeAccepted); err != nil {
		return nil, fmt.Errorf("update judge status: %w", err)
	}
	judge.Status = model.JudgeAccepted
	return judge, nil
}

// ListJudges lists the judges invited for an event.
func (s *JudgingService) ListJudges(ctx context.Context, eventID string) ([]model.Judge, error) {
	return s.judging.ListJudges(ctx, eventID)
}

// SetCriteria replaces an event's rubric. Weights must sum to 1.0; a rubric
// that silently over- or under-weights criteria corrupts every total built
// on it, so this is a hard precondition rather than a warning.
func (s *JudgingService) SetCriteria(ctx context.Context, eventID string, req *model.SetCriteriaRequest) ([]model.JudgingCriteria, error) {
	if req == nil || len(req.Criteria) == 0 {
		return nil, ErrInvalidRequest
	}

	var sum float64
	criteria := make([]model.JudgingCriteria, 0, len(req.Criteria))
	for _, in := range req.Criteria {
		if in.Weight == nil || in.MaxScore == nil {
			return nil, ErrInvalidRequest
		}
		sum += *in.Weight
		criteria = append(criteria, model.JudgingCriteria{
			EventID:  eventID,
			Name:     in.Name,
			MaxScore: *in.MaxScore,
			Weight:   *in.Weight,
			Order:    in.Order,
		})
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("%w (got %.6f)", ErrWeightSum, sum)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.judging.ReplaceCriteria(ctx, tx, eventID, criteria); err != nil {
		return nil, fmt.Errorf("replace criteria: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit criteria: %w", err)
	}
	return criteria, nil
}

// ListCriteria lists an event's rubric in display order.
func (s *JudgingService) ListCriteria(ctx context.Context, eventID string) ([]model.JudgingCriteria, error) {
	return s.judging.ListCriteria(ctx, nil, eventID)
}

// SubmitScore upserts one judge's score for a submission on one criterion
// and recomputes the submission total in the same transaction, so the stored
// total can never lag the underlying rows. The score must lie within
// [0, criteria.MaxScore]; out-of-range writes are rejected, not clamped.
// The returned bool reports whether a new row was inserted (vs updated).
func (s *JudgingService) SubmitScore(ctx context.Context, req *model.SubmitScoreRequest) (*model.JudgeScore, bool, error) {
	if req == nil || req.Score == nil {
		return nil, false, ErrInvalidRequest
	}

	criteria, err := s.judging.GetCriteria(ctx, req.CriteriaID)
	if err != nil {
		return nil, false, fmt.Errorf("get criteria: %w", err)
	}
	if criteria == nil {
		return nil, false, ErrCriteriaNotFound
	}
	if *req.Score < 0 || *req.Score > criteria.MaxScore {
		return nil, false, fmt.Errorf("%w: %g not in [0, %g]", ErrScoreOutOfRange, *req.Score, criteria.MaxScore)
	}

	submission, err := s.submissions.GetByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, false, fmt.Errorf("get submission: %w", err)
	}
	if submission == nil {
		return nil, false, ErrSubmissionNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	score := &model.JudgeScore{
		JudgeID:      req.JudgeID,
		SubmissionID: req.SubmissionID,
		CriteriaID:   req.CriteriaID,
		Score:        *req.Score,
		Comment:      req.Comment,
		ScoredAt:     s.now(),
	}
	inserted, err := s.judging.UpsertScore(ctx, tx, score)
	if err != nil {
		return nil, false, fmt.Errorf("upsert score: %w", err)
	}

	if _, err := s.recomputeTotalTx(ctx, tx, submission); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit score: %w", err)
	}
	return score, inserted, nil
}

// SubmitScores applies each upsert independently and reports per-item
// outcomes. The batch is not atomic: a failed item does not roll back the
// others, and the caller sees exactly which items failed.
func (s *JudgingService) SubmitScores(ctx context.Context, req *model.BulkScoresRequest) ([]model.ScoreResult, error) {
	if req == nil || len(req.Scores) == 0 {
		return nil, ErrInvalidRequest
	}
	results := make([]model.ScoreResult, 0, len(req.Scores))
	for i := range req.Scores {
		score, _, err := s.SubmitScore(ctx, &req.Scores[i])
		if err != nil {
			results = append(results, model.ScoreResult{Error: err.Error()})
			continue
		}
		results = append(results, model.ScoreResult{Score: score})
	}
	return results, nil
}

// RecomputeTotal rebuilds a submission's total from its score rows and
// writes it back. Idempotent: the same rows always produce the same total.
func (s *JudgingService) RecomputeTotal(ctx context.Context, submissionID string) (float64, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return 0, fmt.Errorf("get submission: %w", err)
	}
	if submission == nil {
		return 0, ErrSubmissionNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	total, err := s.recomputeTotalTx(ctx, tx, submission)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit recompute: %w", err)
	}
	return total, nil
}

// recomputeTotalTx reads criteria and scores through the caller's open
// transaction so the total reflects one snapshot.
func (s *JudgingService) recomputeTotalTx(ctx context.Context, tx database.TxQuerier, submission *model.Submission) (float64, error) {
	criteria, err := s.judging.ListCriteria(ctx, tx, submission.EventID)
	if err != nil {
		return 0, fmt.Errorf("list criteria: %w", err)
	}
	scores, err := s.judging.ListScoresBySubmission(ctx, tx, submission.ID)
	if err != nil {
		return 0, fmt.Errorf("list scores: %w", err)
	}

	total := WeightedTotal(criteria, scores)
	if err := s.submissions.SetTotalScore(ctx, tx, submission.ID, total); err != nil {
		return 0, fmt.Errorf("set total score: %w", err)
	}
	return total, nil
}

// WeightedTotal computes sum over criteria of (mean score across judges for
// that criterion) times the criterion's weight. Criteria with no scores
// contribute zero.
func WeightedTotal(criteria []model.JudgingCriteria, scores []model.JudgeScore) float64 {
	var total float64
	for _, c := range criteria {
		var sum float64
		var n int
		for _, sc := range scores {
			if sc.CriteriaID == c.ID {
				sum += sc.Score
				n++
			}
		}
		if n > 0 {
			total += sum / float64(n) * c.Weight
		}
	}
	return total
}

// Rankings returns an event's submissions ordered by total score descending.
// Ties break deterministically: earlier submitted_at wins, then the lower
// submission id.
func (s *JudgingService) Rankings(ctx context.Context, eventID string) ([]model.RankingEntry, error) {
	entries, err := s.submissions.ListForRanking(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		ti, tj := entries[i].SubmittedAt, entries[j].SubmittedAt
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.Before(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		return entries[i].SubmissionID < entries[j].SubmissionID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
