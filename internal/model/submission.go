package model

import "time"

// SubmissionStatus is the review state of a hackathon submission.
type SubmissionStatus string

const (
	SubmissionDraft       SubmissionStatus = "draft"
	SubmissionSubmitted   SubmissionStatus = "submitted"
	SubmissionUnderReview SubmissionStatus = "under_review"
	SubmissionAccepted    SubmissionStatus = "accepted"
	SubmissionRejected    SubmissionStatus = "rejected"
)

// Submission is a team's (or individual's) hackathon project entry.
// TotalScore is derived from judge scores and recomputed on every score write.
type Submission struct {
	ID           string           `json:"id"`
	EventID      string           `json:"event_id"`
	TeamID       string           `json:"team_id,omitempty"`
	UserID       string           `json:"user_id,omitempty"`
	ProjectTitle string           `json:"project_title"`
	Description  string           `json:"description,omitempty"`
	TechStack    string           `json:"tech_stack,omitempty"`
	RepoURL      string           `json:"repo_url,omitempty"`
	DemoURL      string           `json:"demo_url,omitempty"`
	Status       SubmissionStatus `json:"status"`
	TotalScore   float64          `json:"total_score"`
	SubmittedAt  *time.Time       `json:"submitted_at,omitempty"`
	ReviewedBy   string           `json:"reviewed_by,omitempty"`
	ReviewNotes  string           `json:"review_notes,omitempty"`
	CreatedAt    time.Time        `json:"-"`
}

// CreateSubmissionRequest creates a draft submission.
type CreateSubmissionRequest struct {
	EventID      string `json:"event_id" validate:"required,notblank,max=64"`
	TeamID       string `json:"team_id" validate:"max=64"`
	UserID       string `json:"user_id" validate:"max=64"`
	ProjectTitle string `json:"project_title" validate:"required,notblank,max=256"`
	Description  string `json:"description" validate:"max=10000"`
	TechStack    string `json:"tech_stack" validate:"max=1000"`
	RepoURL      string `json:"repo_url" validate:"omitempty,url,max=512"`
	DemoURL      string `json:"demo_url" validate:"omitempty,url,max=512"`
}

// UpdateSubmissionRequest patches project fields. Nil fields are left as-is.
// Edits are rejected once review has started.
type UpdateSubmissionRequest struct {
	ProjectTitle *string `json:"project_title" validate:"omitempty,notblank,max=256"`
	Description  *string `json:"description" validate:"omitempty,max=10000"`
	TechStack    *string `json:"tech_stack" validate:"omitempty,max=1000"`
	RepoURL      *string `json:"repo_url" validate:"omitempty,url,max=512"`
	DemoURL      *string `json:"demo_url" validate:"omitempty,url,max=512"`
}

// TransitionSubmissionRequest moves a submission through the review pipeline.
type TransitionSubmissionRequest struct {
	Status      string `json:"status" validate:"required,oneof=submitted under_review accepted rejected"`
	ReviewedBy  string `json:"reviewed_by" validate:"max=64"`
	ReviewNotes string `json:"review_notes" validate:"max=10000"`
}
