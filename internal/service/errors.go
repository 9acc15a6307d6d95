package service

import "errors"

var (
	// ErrCouponExists is returned when creating a coupon whose code is taken.
	ErrCouponExists = errors.New("coupon code already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTeamNotFound is returned when a team cannot be found.
	ErrTeamNotFound = errors.New("team not found")

	// ErrTeamFull is returned when a join would exceed the team's max size.
	ErrTeamFull = errors.New("team full")

	// ErrTeamNotJoinable is returned when joining a team past the forming stage.
	ErrTeamNotJoinable = errors.New("team is no longer accepting members")

	// ErrAlreadyInTeam is returned when a user already has an accepted
	// membership for the event.
	ErrAlreadyInTeam = errors.New("user already belongs to a team for this event")

	// ErrMemberNotFound is returned when a membership row cannot be found.
	ErrMemberNotFound = errors.New("team member not found")

	// ErrLeaderRemoval is returned when removing the team leader.
	ErrLeaderRemoval = errors.New("team leader cannot be removed")

	// ErrInvalidTransition is returned for status changes the lifecycle
	// state machine does not permit.
	ErrInvalidTransition = errors.New("status transition not permitted")

	// ErrJudgeNotFound is returned when a judge cannot be found.
	ErrJudgeNotFound = errors.New("judge not found")

	// ErrCriteriaNotFound is returned when a judging criterion cannot be found.
	ErrCriteriaNotFound = errors.New("judging criterion not found")

	// ErrScoreOutOfRange is returned when a score falls outside
	// [0, criteria.MaxScore].
	ErrScoreOutOfRange = errors.New("score outside criterion range")

	// ErrWeightSum is returned when a rubric's weights do not sum to 1.0.
	ErrWeightSum = errors.New("criteria weights must sum to 1.0")

	// ErrRubricInUse is returned when replacing a rubric whose criteria
	// already have recorded scores.
	ErrRubricInUse = errors.New("rubric already has recorded scores")

	// ErrSubmissionNotFound is returned when a submission cannot be found.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrSubmissionLocked is returned when editing a submission that has
	// entered review.
	ErrSubmissionLocked = errors.New("submission is locked for review")

	// ErrCodeCollision is returned when invite-code generation keeps hitting
	// existing codes after the bounded number of retries.
	ErrCodeCollision = errors.New("could not generate a unique invite code")
)

// EligibilityError is a coupon business-rule rejection. The reason is the
// user-visible message (e.g. "This coupon has expired") and is stable enough
// for clients to display verbatim.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return e.Reason
}

// Reasons returned by coupon eligibility checks.
const (
	ReasonInvalidCode  = "Invalid coupon code"
	ReasonInactive     = "This coupon is no longer active"
	ReasonNotYetValid  = "This coupon is not yet valid"
	ReasonExpired      = "This coupon has expired"
	ReasonUsageLimit   = "This coupon has reached its usage limit"
	ReasonWrongEvent   = "This coupon is not valid for this event"
	ReasonMissingEvent = "This coupon is only valid for a specific event"
	ReasonMinPurchase  = "Order amount is below the minimum purchase for this coupon"
	ReasonPerUserLimit = "You have already used this coupon"
)
