package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
)

type fakeNotifier struct {
	NotificationService
	published []dto.NotificationCreateRequest
}

func (n *fakeNotifier) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	n.published = append(n.published, payload)
	return dto.NotificationResponse{ID: uint(len(n.published)), UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

type fakeRecorder struct {
	entries []ActivityEntry
}

func (r *fakeRecorder) Record(ctx context.Context, entry ActivityEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func seedResponseFixture(repo *fakePromotionRepo, toLevel *uint) (uint, models.StudentPromotion) {
	parentID := uint(10)
	promotion := models.StudentPromotion{
		ID:             1,
		StudentID:      30,
		ParentID:       &parentID,
		AcademicYearID: 1,
		FromLevelID:    1,
		ToLevelID:      toLevel,
		Status:         models.PromotionStatusPending,
	}
	if toLevel != nil {
		promotion.ToLevel = &models.Level{ID: *toLevel, Name: "Grade 2", StageID: 1, SortOrder: 2}
	}
	repo.promotions[promotion.ID] = promotion

	levelOne := uint(1)
	repo.students[promotion.StudentID] = models.Student{
		ID:       promotion.StudentID,
		UserID:   300,
		Name:     "Sam Learner",
		LevelID:  &levelOne,
		ParentID: &parentID,
		Status:   models.StudentStatusActive,
	}

	return parentID, promotion
}

func newResponseService(repo *fakePromotionRepo, notifier NotificationService, recorder ActivityRecorder, policy PromotionResponsePolicy) PromotionResponseService {
	return NewPromotionResponseService(repo, notifier, recorder, nil, policy, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
}

func TestPromotionResponseServiceApproveMovesStudent(t *testing.T) {
	repo := newFakePromotionRepo()
	toLevel := uint(2)
	parentID, _ := seedResponseFixture(repo, &toLevel)
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}

	svc := newResponseService(repo, notifier, recorder, PromotionResponsePolicy{})

	result, err := svc.Respond(context.Background(), parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "Yes"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.IsApproved)
	require.True(t, result.Promoted)
	require.Contains(t, result.Message, "Sam Learner")
	require.Contains(t, result.Message, "Grade 2")

	stored := repo.promotions[1]
	require.Equal(t, models.PromotionStatusCompleted, stored.Status)
	require.Equal(t, models.PromotionResponseYes, *stored.ParentResponse)
	require.NotNil(t, stored.RespondedAt)
	require.NotNil(t, stored.PromotedAt)
	require.Equal(t, toLevel, *repo.students[30].LevelID)

	require.Len(t, notifier.published, 1)
	require.Equal(t, models.NotificationTypePromotion, notifier.published[0].Type)
	require.Equal(t, uint(300), notifier.published[0].UserID)

	require.Len(t, recorder.entries, 1)
	require.Equal(t, "promotion_responded", recorder.entries[0].Action)
}

func TestPromotionResponseServiceRejectKeepsLevel(t *testing.T) {
	repo := newFakePromotionRepo()
	toLevel := uint(2)
	parentID, _ := seedResponseFixture(repo, &toLevel)
	notifier := &fakeNotifier{}

	svc := newResponseService(repo, notifier, nil, PromotionResponsePolicy{})

	result, err := svc.Respond(context.Background(), parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "no"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.False(t, result.IsApproved)
	require.False(t, result.Promoted)
	require.Contains(t, result.Message, "Sam Learner")

	stored := repo.promotions[1]
	require.Equal(t, models.PromotionStatusRejected, stored.Status)
	require.Equal(t, uint(1), *repo.students[30].LevelID)
	require.Nil(t, stored.PromotedAt)

	// a rejection sends an encouragement, not a promotion notice
	require.Len(t, notifier.published, 1)
	require.Equal(t, models.NotificationTypeEncouragement, notifier.published[0].Type)
}

func TestPromotionResponseServiceFinalLevelApproval(t *testing.T) {
	t.Run("stays approved by default", func(t *testing.T) {
		repo := newFakePromotionRepo()
		parentID, _ := seedResponseFixture(repo, nil)

		svc := newResponseService(repo, nil, nil, PromotionResponsePolicy{})

		result, err := svc.Respond(context.Background(), parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "yes"})
		require.NoError(t, err)
		require.True(t, result.IsApproved)
		require.False(t, result.Promoted)
		require.Contains(t, result.Message, "Sam Learner")

		stored := repo.promotions[1]
		require.Equal(t, models.PromotionStatusApproved, stored.Status)
		require.Nil(t, stored.PromotedAt)
		require.Equal(t, uint(1), *repo.students[30].LevelID)
	})

	t.Run("completes when the policy says so", func(t *testing.T) {
		repo := newFakePromotionRepo()
		parentID, _ := seedResponseFixture(repo, nil)

		svc := newResponseService(repo, nil, nil, PromotionResponsePolicy{CompleteFinalLevel: true})

		result, err := svc.Respond(context.Background(), parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "yes"})
		require.NoError(t, err)
		require.True(t, result.IsApproved)
		require.False(t, result.Promoted)

		stored := repo.promotions[1]
		require.Equal(t, models.PromotionStatusCompleted, stored.Status)
		require.NotNil(t, stored.PromotedAt)
		require.Equal(t, uint(1), *repo.students[30].LevelID)
	})
}

func TestPromotionResponseServiceValidationChain(t *testing.T) {
	repo := newFakePromotionRepo()
	toLevel := uint(2)
	parentID, _ := seedResponseFixture(repo, &toLevel)

	svc := newResponseService(repo, nil, nil, PromotionResponsePolicy{})
	ctx := context.Background()

	_, err := svc.Respond(ctx, parentID, models.RoleTeacher, dto.PromotionRespondRequest{PromotionID: 1, Response: "yes"})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Respond(ctx, parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "maybe"})
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = svc.Respond(ctx, parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 99, Response: "yes"})
	require.ErrorIs(t, err, ErrPromotionNotFound)

	_, err = svc.Respond(ctx, parentID+1, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "yes"})
	require.ErrorIs(t, err, ErrNotPromotionOwner)

	require.Empty(t, repo.responds)
}

func TestPromotionResponseServiceDoubleAnswer(t *testing.T) {
	repo := newFakePromotionRepo()
	toLevel := uint(2)
	parentID, _ := seedResponseFixture(repo, &toLevel)

	svc := newResponseService(repo, nil, nil, PromotionResponsePolicy{})
	ctx := context.Background()

	_, err := svc.Respond(ctx, parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "yes"})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, parentID, models.RoleParent, dto.PromotionRespondRequest{PromotionID: 1, Response: "no"})
	require.ErrorIs(t, err, repository.ErrPromotionAnswered)

	// the first answer stands
	stored := repo.promotions[1]
	require.Equal(t, models.PromotionResponseYes, *stored.ParentResponse)
	require.Len(t, repo.responds, 1)
}
