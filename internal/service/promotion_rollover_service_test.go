package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
)

type fakeStudentRepo struct {
	repository.StudentRepository
	students []models.Student
}

func (r *fakeStudentRepo) ListActiveWithLevel(ctx context.Context) ([]models.Student, error) {
	return r.students, nil
}

type fakeUserRepo struct {
	repository.UserRepository
	byRole map[string][]models.User
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	return r.byRole[role], nil
}

func rolloverFixture() (*fakeAcademicRepo, *fakeStudentRepo) {
	levels := []models.Level{
		{ID: 1, Name: "Grade 1", StageID: 1, SortOrder: 1},
		{ID: 2, Name: "Grade 2", StageID: 1, SortOrder: 2},
		{ID: 3, Name: "Grade 3", StageID: 1, SortOrder: 3},
	}
	academic := &fakeAcademicRepo{
		years:  map[uint]models.AcademicYear{1: {ID: 1, Name: "2026/2027"}},
		levels: levels,
	}

	parentID := uint(10)
	levelOne, levelThree := uint(1), uint(3)
	students := &fakeStudentRepo{students: []models.Student{
		{ID: 30, UserID: 300, Name: "Sam Learner", LevelID: &levelOne, ParentID: &parentID, Status: models.StudentStatusActive, Level: &levels[0]},
		{ID: 31, UserID: 301, Name: "Riley Orphan", LevelID: &levelOne, Status: models.StudentStatusActive, Level: &levels[0]},
		{ID: 32, UserID: 302, Name: "Finn Senior", LevelID: &levelThree, ParentID: &parentID, Status: models.StudentStatusActive, Level: &levels[2]},
	}}

	return academic, students
}

func TestPromotionRolloverServiceCreatesPendingRecords(t *testing.T) {
	academic, students := rolloverFixture()
	repo := newFakePromotionRepo()
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	users := &fakeUserRepo{byRole: map[string][]models.User{
		models.RoleDirector: {{ID: 5, Name: "Dana Director", Role: models.RoleDirector}},
	}}

	svc := NewPromotionRolloverService(repo, students, users, academic, notifier, recorder, nil, zerolog.Nop())

	result, err := svc.Rollover(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 1, result.SkippedNoParent)
	require.Equal(t, 0, result.AlreadyExisted)

	var regular, final *models.StudentPromotion
	for id := range repo.promotions {
		promotion := repo.promotions[id]
		switch promotion.StudentID {
		case 30:
			regular = &promotion
		case 32:
			final = &promotion
		}
	}

	require.NotNil(t, regular)
	require.Equal(t, models.PromotionStatusPending, regular.Status)
	require.NotNil(t, regular.ToLevelID)
	require.Equal(t, uint(2), *regular.ToLevelID)

	// the last level of the stage has no destination
	require.NotNil(t, final)
	require.Nil(t, final.ToLevelID)

	// two parent notifications plus the director summary
	require.Len(t, notifier.published, 3)
	require.Equal(t, models.NotificationTypePromotion, notifier.published[0].Type)

	summary := notifier.published[2]
	require.Equal(t, uint(5), summary.UserID)
	require.Equal(t, models.NotificationTypeGeneric, summary.Type)

	require.Len(t, recorder.entries, 1)
	require.Equal(t, "promotion_rollover", recorder.entries[0].Action)
}

func TestPromotionRolloverServiceIsIdempotent(t *testing.T) {
	academic, students := rolloverFixture()
	repo := newFakePromotionRepo()

	svc := NewPromotionRolloverService(repo, students, nil, academic, nil, nil, nil, zerolog.Nop())

	first, err := svc.Rollover(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	second, err := svc.Rollover(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 0, second.Created)
	require.Equal(t, 2, second.AlreadyExisted)
	require.Equal(t, 1, second.SkippedNoParent)
	require.Len(t, repo.promotions, 2)
}

func TestPromotionRolloverServiceUnknownYear(t *testing.T) {
	academic, students := rolloverFixture()

	svc := NewPromotionRolloverService(newFakePromotionRepo(), students, nil, academic, nil, nil, nil, zerolog.Nop())

	_, err := svc.Rollover(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrAcademicYearNotFound)
}
