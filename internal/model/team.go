package model

import "time"

// TeamStatus is the lifecycle state of a hackathon team.
type TeamStatus string

const (
	TeamForming      TeamStatus = "forming"
	TeamLocked       TeamStatus = "locked"
	TeamSubmitted    TeamStatus = "submitted"
	TeamDisqualified TeamStatus = "disqualified"
	TeamWinner       TeamStatus = "winner"
)

// MemberRole distinguishes the team leader from regular members.
type MemberRole string

const (
	RoleLeader MemberRole = "leader"
	RoleMember MemberRole = "member"
)

// MemberStatus is the state of a membership row.
type MemberStatus string

const (
	MemberInvited  MemberStatus = "invited"
	MemberAccepted MemberStatus = "accepted"
	MemberDeclined MemberStatus = "declined"
	MemberRemoved  MemberStatus = "removed"
)

// HackathonTeam is a team joinable via its invite code.
// MemberCount always equals the number of accepted member rows.
type HackathonTeam struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Name        string     `json:"name"`
	LeaderID    string     `json:"leader_id"`
	LeaderName  string     `json:"leader_name"`
	LeaderEmail string     `json:"leader_email"`
	InviteCode  string     `json:"invite_code"`
	MemberCount int        `json:"member_count"`
	MaxSize     int        `json:"max_size"`
	Status      TeamStatus `json:"status"`
	CreatedAt   time.Time  `json:"-"`
}

// TeamMember is one user's membership in a team.
type TeamMember struct {
	ID        string       `json:"id"`
	TeamID    string       `json:"team_id"`
	EventID   string       `json:"event_id"`
	UserID    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	UserEmail string       `json:"user_email"`
	Role      MemberRole   `json:"role"`
	Status    MemberStatus `json:"status"`
	JoinedAt  time.Time    `json:"joined_at"`
}

// CreateTeamRequest is the DTO for creating a team. MaxSize falls back to the
// configured default when omitted.
type CreateTeamRequest struct {
	EventID     string `json:"event_id" validate:"required,notblank,max=64"`
	TeamName    string `json:"team_name" validate:"required,notblank,max=128"`
	LeaderID    string `json:"leader_id" validate:"required,notblank,max=64"`
	LeaderName  string `json:"leader_name" validate:"required,notblank,max=128"`
	LeaderEmail string `json:"leader_email" validate:"required,email"`
	MaxSize     *int   `json:"max_size" validate:"omitempty,gte=1,lte=20"`
}

// JoinTeamRequest is the DTO for joining a team by invite code.
type JoinTeamRequest struct {
	InviteCode string `json:"invite_code" validate:"required,notblank,max=16"`
	UserID     string `json:"user_id" validate:"required,notblank,max=64"`
	UserName   string `json:"user_name" validate:"required,notblank,max=128"`
	UserEmail  string `json:"user_email" validate:"required,email"`
	EventID    string `json:"event_id" validate:"required,notblank,max=64"`
}

// TransitionTeamRequest is the DTO for admin team status changes.
type TransitionTeamRequest struct {
	Status string `json:"status" validate:"required,oneof=forming locked submitted disqualified winner"`
}

// TeamResponse is a team with its member list.
type TeamResponse struct {
	Team    *HackathonTeam `json:"team"`
	Members []TeamMember   `json:"members"`
}
