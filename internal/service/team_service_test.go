package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// mockTeamRepository is a mock implementation of TeamRepositoryInterface.
type mockTeamRepository struct {
	insertTeamFn               func(ctx context.Context, tx database.TxQuerier, team *model.HackathonTeam) error
	insertMemberFn             func(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error
	getTeamByIDFn              func(ctx context.Context, id string) (*model.HackathonTeam, error)
	getTeamByIDForUpdateFn     func(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error)
	getTeamByInviteForUpdateFn func(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error)
	listMembersFn              func(ctx context.Context, teamID string) ([]model.TeamMember, error)
	getActiveMemberFn          func(ctx context.Context, tx database.TxQuerier, teamID, userID string) (*model.TeamMember, error)
	adjustMemberCountFn        func(ctx context.Context, tx database.TxQuerier, teamID string, delta int) error
	setMemberStatusFn          func(ctx context.Context, tx database.TxQuerier, teamID, userID string, status model.MemberStatus) error
	updateTeamStatusFn         func(ctx context.Context, tx database.TxQuerier, teamID string, status model.TeamStatus) error
	deleteMembersFn            func(ctx context.Context, tx database.TxQuerier, teamID string) error
	deleteTeamFn               func(ctx context.Context, tx database.TxQuerier, teamID string) error
}

func (m *mockTeamRepository) InsertTeam(ctx context.Context, tx database.TxQuerier, team *model.HackathonTeam) error {
	if m.insertTeamFn != nil {
		return m.insertTeamFn(ctx, tx, team)
	}
	team.ID = "team_1"
	return nil
}

func (m *mockTeamRepository) InsertMember(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error {
	if m.insertMemberFn != nil {
		return m.insertMemberFn(ctx, tx, member)
	}
	return nil
}

func (m *mockTeamRepository) GetTeamByID(ctx context.Context, id string) (*model.HackathonTeam, error) {
	if m.getTeamByIDFn != nil {
		return m.getTeamByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTeamRepository) GetTeamByIDForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error) {
	if m.getTeamByIDForUpdateFn != nil {
		return m.getTeamByIDForUpdateFn(ctx, tx, id)
	}
	return nil, ErrTeamNotFound
}

func (m *mockTeamRepository) GetTeamByInviteForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error) {
	if m.getTeamByInviteForUpdateFn != nil {
		return m.getTeamByInviteForUpdateFn(ctx, tx, code)
	}
	return nil, ErrTeamNotFound
}

func (m *mockTeamRepository) ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	if m.listMembersFn != nil {
		return m.listMembersFn(ctx, teamID)
	}
	return []model.TeamMember{}, nil
}

func (m *mockTeamRepository) GetActiveMember(ctx context.Context, tx database.TxQuerier, teamID, userID string) (*model.TeamMember, error) {
	if m.getActiveMemberFn != nil {
		return m.getActiveMemberFn(ctx, tx, teamID, userID)
	}
	return nil, nil
}

func (m *mockTeamRepository) AdjustMemberCount(ctx context.Context, tx database.TxQuerier, teamID string, delta int) error {
	if m.adjustMemberCountFn != nil {
		return m.adjustMemberCountFn(ctx, tx, teamID, delta)
	}
	return nil
}

func (m *mockTeamRepository) SetMemberStatus(ctx context.Context, tx database.TxQuerier, teamID, userID string, status model.MemberStatus) error {
	if m.setMemberStatusFn != nil {
		return m.setMemberStatusFn(ctx, tx, teamID, userID, status)
	}
	return nil
}

func (m *mockTeamRepository) UpdateTeamStatus(ctx context.Context, tx database.TxQuerier, teamID string, status model.TeamStatus) error {
	if m.updateTeamStatusFn != nil {
		return m.updateTeamStatusFn(ctx, tx, teamID, status)
	}
	return nil
}

func (m *mockTeamRepository) DeleteMembers(ctx context.Context, tx database.TxQuerier, teamID string) error {
	if m.deleteMembersFn != nil {
		return m.deleteMembersFn(ctx, tx, teamID)
	}
	return nil
}

func (m *mockTeamRepository) DeleteTeam(ctx context.Context, tx database.TxQuerier, teamID string) error {
	if m.deleteTeamFn != nil {
		return m.deleteTeamFn(ctx, tx, teamID)
	}
	return nil
}

func intPtr(i int) *int {
	return &i
}

func newTeamService(repo *mockTeamRepository) *TeamService {
	return NewTeamServiceWithTxBeginner(&mockTxBeginner{}, repo, 5, 8, fixedClock)
}

func createTeamRequest() *model.CreateTeamRequest {
	return &model.CreateTeamRequest{
		EventID:     "evt_hack",
		TeamName:    "Bit Flippers",
		LeaderID:    "user_lead",
		LeaderName:  "Asha",
		LeaderEmail: "asha@example.com",
	}
}

func TestTeamService_CreateTeam(t *testing.T) {
	var insertedTeam *model.HackathonTeam
	var insertedMember *model.TeamMember
	repo := &mockTeamRepository{
		insertTeamFn: func(ctx context.Context, tx database.TxQuerier, team *model.HackathonTeam) error {
			team.ID = "team_1"
			insertedTeam = team
			return nil
		},
		insertMemberFn: func(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error {
			insertedMember = member
			return nil
		},
	}
	svc := newTeamService(repo)

	team, err := svc.CreateTeam(context.Background(), createTeamRequest())

	require.NoError(t, err)
	require.NotNil(t, insertedTeam)
	assert.Equal(t, model.TeamForming, team.Status)
	assert.Equal(t, 1, team.MemberCount, "the leader counts from the start")
	assert.Equal(t, 5, team.MaxSize, "default max size applies when omitted")
	assert.Len(t, team.InviteCode, 8)

	// The leader's membership row is written in the same transaction.
	require.NotNil(t, insertedMember)
	assert.Equal(t, "team_1", insertedMember.TeamID)
	assert.Equal(t, "user_lead", insertedMember.UserID)
	assert.Equal(t, model.RoleLeader, insertedMember.Role)
	assert.Equal(t, model.MemberAccepted, insertedMember.Status)
}

func TestTeamService_CreateTeam_ExplicitMaxSize(t *testing.T) {
	svc := newTeamService(&mockTeamRepository{})
	req := createTeamRequest()
	req.MaxSize = intPtr(3)

	team, err := svc.CreateTeam(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 3, team.MaxSize)
}

func TestTeamService_CreateTeam_RejectsZeroMaxSize(t *testing.T) {
	svc := newTeamService(&mockTeamRepository{})
	req := createTeamRequest()
	req.MaxSize = intPtr(0)

	_, err := svc.CreateTeam(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestTeamService_CreateTeam_RetriesOnCodeCollision(t *testing.T) {
	// The first generated code collides; the whole transaction is retried with
	// a fresh code rather than re-inserting inside the aborted one.
	attempts := 0
	codes := map[string]bool{}
	repo := &mockTeamRepository{
		insertTeamFn: func(ctx context.Context, tx database.TxQuerier, team *model.HackathonTeam) error {
			attempts++
			codes[team.InviteCode] = true
			if attempts == 1 {
				return ErrCodeCollision
			}
			team.ID = "team_1"
			return nil
		},
	}
	svc := newTeamService(repo)

	team, err := svc.CreateTeam(context.Background(), createTeamRequest())

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Len(t, codes, 2, "each attempt uses a fresh code")
	assert.True(t, codes[team.InviteCode])
}

func TestTeamService_CreateTeam_GivesUpAfterRepeatedCollisions(t *testing.T) {
	attempts := 0
	repo := &mockTeamRepository{
		insertTeamFn: func(ctx context.Context, tx database.TxQuerier, team *model.HackathonTeam) error {
			attempts++
			return ErrCodeCollision
		},
	}
	svc := newTeamService(repo)

	_, err := svc.CreateTeam(context.Background(), createTeamRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeCollision))
	assert.Equal(t, codeAttempts, attempts)
}

func joinableTeam() *model.HackathonTeam {
	return &model.HackathonTeam{
		ID:          "team_1",
		EventID:     "evt_hack",
		Name:        "Bit Flippers",
		LeaderID:    "user_lead",
		InviteCode:  "ABCD2345",
		MemberCount: 2,
		MaxSize:     4,
		Status:      model.TeamForming,
	}
}

func TestTeamService_JoinTeam(t *testing.T) {
	team := joinableTeam()
	var insertedMember *model.TeamMember
	var delta int
	repo := &mockTeamRepository{
		getTeamByInviteForUpdateFn: func(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error) {
			assert.Equal(t, "ABCD2345", code)
			return team, nil
		},
		insertMemberFn: func(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error {
			insertedMember = member
			return nil
		},
		adjustMemberCountFn: func(ctx context.Context, tx database.TxQuerier, teamID string, d int) error {
			delta = d
			return nil
		},
	}
	svc := newTeamService(repo)

	got, err := svc.JoinTeam(context.Background(), &model.JoinTeamRequest{
		InviteCode: "ABCD2345",
		UserID:     "user_b",
		UserName:   "Binh",
		UserEmail:  "binh@example.com",
		EventID:    "evt_hack",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got.MemberCount)
	assert.Equal(t, 1, delta)
	require.NotNil(t, insertedMember)
	assert.Equal(t, model.RoleMember, insertedMember.Role)
	assert.Equal(t, "evt_hack", insertedMember.EventID, "membership inherits the team's event")
}

func TestTeamService_JoinTeam_UnknownCode(t *testing.T) {
	svc := newTeamService(&mockTeamRepository{})

	_, err := svc.JoinTeam(context.Background(), &model.JoinTeamRequest{InviteCode: "NOPE", UserID: "user_b"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTeamNotFound))
}

func TestTeamService_JoinTeam_Full(t *testing.T) {
	team := joinableTeam()
	team.MemberCount = team.MaxSize
	inserted := false
	repo := &mockTeamRepository{
		getTeamByInviteForUpdateFn: func(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error) {
			return team, nil
		},
		insertMemberFn: func(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error {
			inserted = true
			return nil
		},
	}
	svc := newTeamService(repo)

	_, err := svc.JoinTeam(context.Background(), &model.JoinTeamRequest{InviteCode: team.InviteCode, UserID: "user_b", EventID: "evt_hack"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTeamFull))
	assert.False(t, inserted, "no member row is written for a full team")
}

func TestTeamService_JoinTeam_NotJoinable(t *testing.T) {
	for _, status := range []model.TeamStatus{model.TeamLocked, model.TeamSubmitted, model.TeamDisqualified, model.TeamWinner} {
		t.Run(string(status), func(t *testing.T) {
			team := joinableTeam()
			team.Status = status
			repo := &mockTeamRepository{
				getTeamByInviteForUpdateFn: func(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error) {
					return team, nil
				},
			}
			svc := newTeamService(repo)

			_, err := svc.JoinTeam(context.Background(), &model.JoinTeamRequest{InviteCode: team.InviteCode, UserID: "user_b", EventID: "evt_hack"})

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTeamNotJoinable))
		})
	}
}

func TestTeamService_JoinTeam_AlreadyInTeam(t *testing.T) {
	repo := &mockTeamRepository{
		getTeamByInviteForUpdateFn: func(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error) {
			return joinableTeam(), nil
		},
		insertMemberFn: func(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error {
			return ErrAlreadyInTeam
		},
	}
	svc := newTeamService(repo)

	_, err := svc.JoinTeam(context.Background(), &model.JoinTeamRequest{InviteCode: "ABCD2345", UserID: "user_b", EventID: "evt_hack"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyInTeam))
}

func TestTeamService_JoinTeam_WrongEvent(t *testing.T) {
	inserted := false
	repo := &mockTeamRepository{
		getTeamByInviteForUpdateFn: func(ctx context.Context, tx database.TxQuerier, code string) (*model.HackathonTeam, error) {
			return joinableTeam(), nil
		},
		insertMemberFn: func(ctx context.Context, tx database.TxQuerier, member *model.TeamMember) error {
			inserted = true
			return nil
		},
	}
	svc := newTeamService(repo)

	_, err := svc.JoinTeam(context.Background(), &model.JoinTeamRequest{InviteCode: "ABCD2345", UserID: "user_b", EventID: "evt_other"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTeamNotFound), "a code from another event resolves to no team")
	assert.False(t, inserted)
}

func TestTeamService_RemoveMember(t *testing.T) {
	var delta int
	var newStatus model.MemberStatus
	repo := &mockTeamRepository{
		getTeamByIDForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error) {
			return joinableTeam(), nil
		},
		getActiveMemberFn: func(ctx context.Context, tx database.TxQuerier, teamID, userID string) (*model.TeamMember, error) {
			return &model.TeamMember{TeamID: teamID, UserID: userID, Role: model.RoleMember, Status: model.MemberAccepted}, nil
		},
		setMemberStatusFn: func(ctx context.Context, tx database.TxQuerier, teamID, userID string, status model.MemberStatus) error {
			newStatus = status
			return nil
		},
		adjustMemberCountFn: func(ctx context.Context, tx database.TxQuerier, teamID string, d int) error {
			delta = d
			return nil
		},
	}
	svc := newTeamService(repo)

	err := svc.RemoveMember(context.Background(), "team_1", "user_b")

	require.NoError(t, err)
	assert.Equal(t, model.MemberRemoved, newStatus)
	assert.Equal(t, -1, delta)
}

func TestTeamService_RemoveMember_LeaderRejected(t *testing.T) {
	repo := &mockTeamRepository{
		getTeamByIDForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error) {
			return joinableTeam(), nil
		},
		getActiveMemberFn: func(ctx context.Context, tx database.TxQuerier, teamID, userID string) (*model.TeamMember, error) {
			return &model.TeamMember{TeamID: teamID, UserID: userID, Role: model.RoleLeader, Status: model.MemberAccepted}, nil
		},
	}
	svc := newTeamService(repo)

	err := svc.RemoveMember(context.Background(), "team_1", "user_lead")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLeaderRemoval))
}

func TestTeamService_RemoveMember_NotFound(t *testing.T) {
	repo := &mockTeamRepository{
		getTeamByIDForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error) {
			return joinableTeam(), nil
		},
	}
	svc := newTeamService(repo)

	err := svc.RemoveMember(context.Background(), "team_1", "user_ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMemberNotFound))
}

func TestTeamService_DeleteTeam_MembersFirst(t *testing.T) {
	var order []string
	repo := &mockTeamRepository{
		getTeamByIDForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error) {
			return joinableTeam(), nil
		},
		deleteMembersFn: func(ctx context.Context, tx database.TxQuerier, teamID string) error {
			order = append(order, "members")
			return nil
		},
		deleteTeamFn: func(ctx context.Context, tx database.TxQuerier, teamID string) error {
			order = append(order, "team")
			return nil
		},
	}
	svc := newTeamService(repo)

	err := svc.DeleteTeam(context.Background(), "team_1")

	require.NoError(t, err)
	assert.Equal(t, []string{"members", "team"}, order)
}

func TestTeamService_Transition(t *testing.T) {
	testCases := []struct {
		from    model.TeamStatus
		to      model.TeamStatus
		allowed bool
	}{
		{model.TeamForming, model.TeamLocked, true},
		{model.TeamForming, model.TeamDisqualified, true},
		{model.TeamForming, model.TeamSubmitted, false},
		{model.TeamForming, model.TeamWinner, false},
		{model.TeamLocked, model.TeamSubmitted, true},
		{model.TeamLocked, model.TeamDisqualified, true},
		{model.TeamLocked, model.TeamForming, false},
		{model.TeamSubmitted, model.TeamWinner, true},
		{model.TeamSubmitted, model.TeamDisqualified, false},
		{model.TeamWinner, model.TeamForming, false},
		{model.TeamDisqualified, model.TeamForming, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			team := joinableTeam()
			team.Status = tc.from
			repo := &mockTeamRepository{
				getTeamByIDForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.HackathonTeam, error) {
					return team, nil
				},
			}
			svc := newTeamService(repo)

			got, err := svc.Transition(context.Background(), team.ID, tc.to)

			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, got.Status)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			}
		})
	}
}

func TestTeamService_GetTeam(t *testing.T) {
	repo := &mockTeamRepository{
		getTeamByIDFn: func(ctx context.Context, id string) (*model.HackathonTeam, error) {
			return joinableTeam(), nil
		},
		listMembersFn: func(ctx context.Context, teamID string) ([]model.TeamMember, error) {
			return []model.TeamMember{
				{UserID: "user_lead", Role: model.RoleLeader},
				{UserID: "user_b", Role: model.RoleMember},
			}, nil
		},
	}
	svc := newTeamService(repo)

	resp, err := svc.GetTeam(context.Background(), "team_1")

	require.NoError(t, err)
	assert.Equal(t, "team_1", resp.Team.ID)
	assert.Len(t, resp.Members, 2)
}

func TestTeamService_GetTeam_NotFound(t *testing.T) {
	svc := newTeamService(&mockTeamRepository{})

	_, err := svc.GetTeam(context.Background(), "team_missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTeamNotFound))
}
