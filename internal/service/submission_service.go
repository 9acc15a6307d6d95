package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// SubmissionRepositoryInterface defines the interface for submission data
// access.
type SubmissionRepositoryInterface interface {
	Insert(ctx context.Context, submission *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Submission, error)
	UpdateFields(ctx context.Context, tx database.TxQuerier, id string, req *model.UpdateSubmissionRequest) error
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id string, status model.SubmissionStatus, submittedAt *time.Time, reviewedBy, reviewNotes string) error
	SetTotalScore(ctx context.Context, tx database.TxQuerier, id string, total float64) error
	ListForRanking(ctx context.Context, eventID string) ([]model.RankingEntry, error)
}

// submissionTransitions is the review pipeline state machine.
// accepted and rejected are terminal here; the winner flow lives in results
// publication, outside this service.
var submissionTransitions = map[model.SubmissionStatus][]model.SubmissionStatus{
	model.SubmissionDraft:       {model.SubmissionSubmitted},
	model.SubmissionSubmitted:   {model.SubmissionUnderReview},
	model.SubmissionUnderReview: {model.SubmissionAccepted, model.SubmissionRejected},
}

// SubmissionService provides submission lifecycle logic.
type SubmissionService struct {
	pool        TxBeginner
	submissions SubmissionRepositoryInterface
	now         func() time.Time
}

// NewSubmissionService creates a SubmissionService.
func NewSubmissionService(pool *pgxpool.Pool, submissions SubmissionRepositoryInterface) *SubmissionService {
	return NewSubmissionServiceWithTxBeginner(pool, submissions, nil)
}

// NewSubmissionServiceWithTxBeginner creates a SubmissionService with a
// custom TxBeginner and clock. Primarily used for testing.
func NewSubmissionServiceWithTxBeginner(pool TxBeginner, submissions SubmissionRepositoryInterface, now func() time.Time) *SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &SubmissionService{pool: pool, submissions: submissions, now: now}
}

// Create creates a draft submission. Either a team or an individual owner is
// required.
func (s *SubmissionService) Create(ctx context.Context, req *model.CreateSubmissionRequest) (*model.Submission, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if req.TeamID == "" && req.UserID == "" {
		return nil, fmt.Errorf("%w: submission needs a team_id or user_id", ErrInvalidRequest)
	}

	submission := &model.Submission{
		EventID:      req.EventID,
		TeamID:       req.TeamID,
		UserID:       req.UserID,
		ProjectTitle: req.ProjectTitle,
		Description:  req.Description,
		TechStack:    req.TechStack,
		RepoURL:      req.RepoURL,
		DemoURL:      req.DemoURL,
		Status:       model.SubmissionDraft,
	}
	if err := s.submissions.Insert(ctx, submission); err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return submission, nil
}

// Get retrieves a submission.
func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if submission == nil {
		return nil, ErrSubmissionNotFound
	}
	return submission, nil
}

// Update patches a submission's project fields. Drafts and resubmissions are
// fine; once review has started the row is frozen and edits are rejected
// with ErrSubmissionLocked.
func (s *SubmissionService) Update(ctx context.Context, id string, req *model.UpdateSubmissionRequest) (*model.Submission, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	submission, err := s.submissions.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission for update: %w", err)
	}
	if submission.Status != model.SubmissionDraft && submission.Status != model.SubmissionSubmitted {
		return nil, ErrSubmissionLocked
	}

	if err := s.submissions.UpdateFields(ctx, tx, id, req); err != nil {
		return nil, fmt.Errorf("update submission: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}

	applyPatch(submission, req)
	return submission, nil
}

// Transition moves a submission through the review pipeline, enforcing the
// state machine. draft -> submitted stamps submitted_at; the review verdicts
// record the reviewer and notes.
func (s *SubmissionService) Transition(ctx context.Context, id string, req *model.TransitionSubmissionRequest) (*model.Submission, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	to := model.SubmissionStatus(req.Status)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	submission, err := s.submissions.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission for update: %w", err)
	}

	if !submissionTransitionAllowed(submission.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, submission.Status, to)
	}

	var submittedAt *time.Time
	if to == model.SubmissionSubmitted {
		t := s.now()
		submittedAt = &t
	}
	if err := s.submissions.UpdateStatus(ctx, tx, id, to, submittedAt, req.ReviewedBy, req.ReviewNotes); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	submission.Status = to
	if submittedAt != nil {
		submission.SubmittedAt = submittedAt
	}
	if req.ReviewedBy != "" {
		submission.ReviewedBy = req.ReviewedBy
	}
	if req.ReviewNotes != "" {
		submission.ReviewNotes = req.ReviewNotes
	}
	return submission, nil
}

func submissionTransitionAllowed(from, to model.SubmissionStatus) bool {
	for _, s := range submissionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func applyPatch(sub *model.Submission, req *model.UpdateSubmissionRequest) {
	if req.ProjectTitle != nil {
		sub.ProjectTitle = *req.ProjectTitle
	}
	if req.Description != nil {
		sub.Description = *req.Description
	}
	if req.TechStack != nil {
		sub.TechStack = *req.TechStack
	}
	if req.RepoURL != nil {
		sub.RepoURL = *req.RepoURL
	}
	if req.DemoURL != nil {
		sub.DemoURL = *req.DemoURL
	}
}
