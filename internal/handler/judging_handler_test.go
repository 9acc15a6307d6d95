package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/internal/service"
	"github.com/archduke1337/mindmesh-core/internal/validator"
)

// mockJudgingService is a mock implementation of JudgingServiceInterface.
type mockJudgingService struct {
	createJudgeFn  func(ctx context.Context, req *model.CreateJudgeRequest) (*model.Judge, error)
	acceptInviteFn func(ctx context.Context, code string) (*model.Judge, error)
	listJudgesFn   func(ctx context.Context, eventID string) ([]model.Judge, error)
	setCriteriaFn  func(ctx context.Context, eventID string, req *model.SetCriteriaRequest) ([]model.JudgingCriteria, error)
	listCriteriaFn func(ctx context.Context, eventID string) ([]model.JudgingCriteria, error)
	submitScoreFn  func(ctx context.Context, req *model.SubmitScoreRequest) (*model.JudgeScore, bool, error)
	submitScoresFn func(ctx context.Context, req *model.BulkScoresRequest) ([]model.ScoreResult, error)
	rankingsFn     func(ctx context.Context, eventID string) ([]model.RankingEntry, error)
}

func (m *mockJudgingService) CreateJudge(ctx context.Context, req *model.CreateJudgeRequest) (*model.Judge, error) {
	if m.createJudgeFn != nil {
		return m.createJudgeFn(ctx, req)
	}
	return &model.Judge{}, nil
}

func (m *mockJudgingService) AcceptInvite(ctx context.Context, code string) (*model.Judge, error) {
	if m.acceptInviteFn != nil {
		return m.acceptInviteFn(ctx, code)
	}
	return &model.Judge{}, nil
}

func (m *mockJudgingService) ListJudges(ctx context.Context, eventID string) ([]model.Judge, error) {
	if m.listJudgesFn != nil {
		return m.listJudgesFn(ctx, eventID)
	}
	return []model.Judge{}, nil
}

func (m *mockJudgingService) SetCriteria(ctx context.Context, eventID string, req *model.SetCriteriaRequest) ([]model.JudgingCriteria, error) {
	if m.setCriteriaFn != nil {
		return m.setCriteriaFn(ctx, eventID, req)
	}
	return []model.JudgingCriteria{}, nil
}

func (m *mockJudgingService) ListCriteria(ctx context.Context, eventID string) ([]model.JudgingCriteria, error) {
	if m.listCriteriaFn != nil {
		return m.listCriteriaFn(ctx, eventID)
	}
	return []model.JudgingCriteria{}, nil
}

func (m *mockJudgingService) SubmitScore(ctx context.Context, req *model.SubmitScoreRequest) (*model.JudgeScore, bool, error) {
	if m.submitScoreFn != nil {
		return m.submitScoreFn(ctx, req)
	}
	return &model.JudgeScore{}, true, nil
}

func (m *mockJudgingService) SubmitScores(ctx context.Context, req *model.BulkScoresRequest) ([]model.ScoreResult, error) {
	if m.submitScoresFn != nil {
		return m.submitScoresFn(ctx, req)
	}
	return []model.ScoreResult{}, nil
}

func (m *mockJudgingService) Rankings(ctx context.Context, eventID string) ([]model.RankingEntry, error) {
	if m.rankingsFn != nil {
		return m.rankingsFn(ctx, eventID)
	}
	return []model.RankingEntry{}, nil
}

func newJudgingApp(svc *mockJudgingService) *fiber.App {
	app := fiber.New()
	h := NewJudgingHandler(svc, validator.New())
	app.Post("/api/judges", h.CreateJudge)
	app.Post("/api/judges/accept", h.AcceptInvite)
	app.Get("/api/events/:eventID/judges", h.ListJudges)
	app.Put("/api/events/:eventID/criteria", h.SetCriteria)
	app.Get("/api/events/:eventID/criteria", h.ListCriteria)
	app.Get("/api/events/:eventID/rankings", h.Rankings)
	app.Post("/api/scores", h.SubmitScore)
	app.Post("/api/scores/bulk", h.SubmitScores)
	return app
}

func TestJudgingHandler_CreateJudge(t *testing.T) {
	svc := &mockJudgingService{
		createJudgeFn: func(ctx context.Context, req *model.CreateJudgeRequest) (*model.Judge, error) {
			return &model.Judge{ID: "judge_1", Name: req.Name, InviteCode: "CODE2345", Status: model.JudgeInvited}, nil
		},
	}
	app := newJudgingApp(svc)

	body, _ := json.Marshal(model.CreateJudgeRequest{
		EventID: "evt_hack",
		Name:    "Dana",
		Email:   "dana@example.com",
	})
	req := httptest.NewRequest("POST", "/api/judges", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	result := decodeBody(t, resp.Body)
	judge := result["judge"].(map[string]any)
	assert.Equal(t, "invited", judge["status"])
}

func TestJudgingHandler_AcceptInvite_Declined(t *testing.T) {
	svc := &mockJudgingService{
		acceptInviteFn: func(ctx context.Context, code string) (*model.Judge, error) {
			return nil, service.ErrInvalidTransition
		},
	}
	app := newJudgingApp(svc)

	body, _ := json.Marshal(model.AcceptJudgeRequest{InviteCode: "CODE2345"})
	req := httptest.NewRequest("POST", "/api/judges/accept", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJudgingHandler_SetCriteria_WeightSum(t *testing.T) {
	svc := &mockJudgingService{
		setCriteriaFn: func(ctx context.Context, eventID string, req *model.SetCriteriaRequest) ([]model.JudgingCriteria, error) {
			return nil, service.ErrWeightSum
		},
	}
	app := newJudgingApp(svc)

	body, _ := json.Marshal(model.SetCriteriaRequest{
		Criteria: []model.CriterionInput{
			{Name: "Innovation", MaxScore: floatPtr(10), Weight: floatPtr(0.5)},
		},
	})
	req := httptest.NewRequest("PUT", "/api/events/evt_hack/criteria", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJudgingHandler_SetCriteria_RubricInUse(t *testing.T) {
	svc := &mockJudgingService{
		setCriteriaFn: func(ctx context.Context, eventID string, req *model.SetCriteriaRequest) ([]model.JudgingCriteria, error) {
			return nil, service.ErrRubricInUse
		},
	}
	app := newJudgingApp(svc)

	body, _ := json.Marshal(model.SetCriteriaRequest{
		Criteria: []model.CriterionInput{
			{Name: "Innovation", MaxScore: floatPtr(10), Weight: floatPtr(1)},
		},
	})
	req := httptest.NewRequest("PUT", "/api/events/evt_hack/criteria", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	result := decodeBody(t, resp.Body)
	assert.Contains(t, result["error"], "recorded scores")
}

func TestJudgingHandler_SubmitScore_InsertVsUpdate(t *testing.T) {
	for _, tc := range []struct {
		name       string
		inserted   bool
		wantStatus int
	}{
		{"inserted", true, fiber.StatusCreated},
		{"updated", false, fiber.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockJudgingService{
				submitScoreFn: func(ctx context.Context, req *model.SubmitScoreRequest) (*model.JudgeScore, bool, error) {
					return &model.JudgeScore{ID: "score_1", Score: *req.Score}, tc.inserted, nil
				},
			}
			app := newJudgingApp(svc)

			body, _ := json.Marshal(model.SubmitScoreRequest{
				JudgeID:      "judge_1",
				SubmissionID: "sub_1",
				CriteriaID:   "crit_1",
				Score:        floatPtr(8),
			})
			req := httptest.NewRequest("POST", "/api/scores", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestJudgingHandler_SubmitScore_OutOfRange(t *testing.T) {
	svc := &mockJudgingService{
		submitScoreFn: func(ctx context.Context, req *model.SubmitScoreRequest) (*model.JudgeScore, bool, error) {
			return nil, false, service.ErrScoreOutOfRange
		},
	}
	app := newJudgingApp(svc)

	body, _ := json.Marshal(model.SubmitScoreRequest{
		JudgeID:      "judge_1",
		SubmissionID: "sub_1",
		CriteriaID:   "crit_1",
		Score:        floatPtr(99),
	})
	req := httptest.NewRequest("POST", "/api/scores", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJudgingHandler_SubmitScore_UnknownJudge(t *testing.T) {
	svc := &mockJudgingService{
		submitScoreFn: func(ctx context.Context, req *model.SubmitScoreRequest) (*model.JudgeScore, bool, error) {
			return nil, false, service.ErrJudgeNotFound
		},
	}
	app := newJudgingApp(svc)

	body, _ := json.Marshal(model.SubmitScoreRequest{
		JudgeID:      "judge_ghost",
		SubmissionID: "sub_1",
		CriteriaID:   "crit_1",
		Score:        floatPtr(5),
	})
	req := httptest.NewRequest("POST", "/api/scores", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestJudgingHandler_Rankings(t *testing.T) {
	svc := &mockJudgingService{
		rankingsFn: func(ctx context.Context, eventID string) ([]model.RankingEntry, error) {
			return []model.RankingEntry{
				{Rank: 1, SubmissionID: "sub_a", TotalScore: 9.1},
				{Rank: 2, SubmissionID: "sub_b", TotalScore: 8.5},
			}, nil
		},
	}
	app := newJudgingApp(svc)

	req := httptest.NewRequest("GET", "/api/events/evt_hack/rankings", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp.Body)
	rankings := result["rankings"].([]any)
	require.Len(t, rankings, 2)
	first := rankings[0].(map[string]any)
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, "sub_a", first["submission_id"])
}
