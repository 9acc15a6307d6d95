package model

import "time"

// JudgeStatus is the state of a judge invitation.
type JudgeStatus string

const (
	JudgeInvited  JudgeStatus = "invited"
	JudgeAccepted JudgeStatus = "accepted"
	JudgeDeclined JudgeStatus = "declined"
)

// Judge evaluates submissions for an event. An empty AssignedTeams list means
// the judge covers every team.
type Judge struct {
	ID            string      `json:"id"`
	EventID       string      `json:"event_id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	InviteCode    string      `json:"invite_code"`
	Status        JudgeStatus `json:"status"`
	IsLead        bool        `json:"is_lead"`
	AssignedTeams []string    `json:"assigned_teams"`
	Order         int         `json:"order"`
	CreatedAt     time.Time   `json:"-"`
}

// JudgingCriteria is one rubric criterion. Weight is a fraction; the weights
// of an event's rubric sum to 1.0.
type JudgingCriteria struct {
	ID       string  `json:"id"`
	EventID  string  `json:"event_id"`
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
	Weight   float64 `json:"weight"`
	Order    int     `json:"order"`
}

// JudgeScore is one judge's score for one submission on one criterion.
// Unique per (judge_id, submission_id, criteria_id); upserted in place.
type JudgeScore struct {
	ID           string    `json:"id"`
	JudgeID      string    `json:"judge_id"`
	SubmissionID string    `json:"submission_id"`
	CriteriaID   string    `json:"criteria_id"`
	Score        float64   `json:"score"`
	Comment      string    `json:"comment,omitempty"`
	ScoredAt     time.Time `json:"scored_at"`
}

// CreateJudgeRequest is the DTO for inviting a judge.
type CreateJudgeRequest struct {
	EventID       string   `json:"event_id" validate:"required,notblank,max=64"`
	Name          string   `json:"name" validate:"required,notblank,max=128"`
	Email         string   `json:"email" validate:"required,email"`
	IsLead        bool     `json:"is_lead"`
	AssignedTeams []string `json:"assigned_teams" validate:"dive,required,max=64"`
	Order         int      `json:"order" validate:"gte=0"`
}

// AcceptJudgeRequest is the DTO for accepting a judge invitation by code.
type AcceptJudgeRequest struct {
	InviteCode string `json:"invite_code" validate:"required,notblank,max=16"`
}

// CriterionInput is one criterion in a rubric replacement.
type CriterionInput struct {
	Name     string   `json:"name" validate:"required,notblank,max=128"`
	MaxScore *float64 `json:"max_score" validate:"required,gt=0"`
	Weight   *float64 `json:"weight" validate:"required,gt=0,lte=1"`
	Order    int      `json:"order" validate:"gte=0"`
}

// SetCriteriaRequest replaces an event's rubric. Weights must sum to 1.0.
type SetCriteriaRequest struct {
	Criteria []CriterionInput `json:"criteria" validate:"required,min=1,dive"`
}

// SubmitScoreRequest is the DTO for a single score upsert.
type SubmitScoreRequest struct {
	JudgeID      string   `json:"judge_id" validate:"required,notblank,max=64"`
	SubmissionID string   `json:"submission_id" validate:"required,notblank,max=64"`
	CriteriaID   string   `json:"criteria_id" validate:"required,notblank,max=64"`
	Score        *float64 `json:"score" validate:"required,gte=0"`
	Comment      string   `json:"comment" validate:"max=2000"`
}

// BulkScoresRequest applies several score upserts, collecting per-item results.
type BulkScoresRequest struct {
	Scores []SubmitScoreRequest `json:"scores" validate:"required,min=1,dive"`
}

// ScoreResult is the per-item outcome of a bulk score submission.
type ScoreResult struct {
	Score *JudgeScore `json:"score,omitempty"`
	Error string      `json:"error,omitempty"`
}

// RankingEntry is one row of an event's leaderboard.
type RankingEntry struct {
	Rank         int        `json:"rank"`
	SubmissionID string     `json:"submission_id"`
	ProjectTitle string     `json:"project_title"`
	TeamID       string     `json:"team_id,omitempty"`
	TotalScore   float64    `json:"total_score"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}
