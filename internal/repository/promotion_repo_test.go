package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Named per-test so parallel packages and sibling tests never share state.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Stage{},
		&models.Level{},
		&models.AcademicYear{},
		&models.Student{},
		&models.StudentPromotion{},
		&models.Message{},
	))
	return db
}

type promotionFixture struct {
	parent   models.User
	year     models.AcademicYear
	levelOne models.Level
	levelTwo models.Level
	student  models.Student
}

func seedPromotionFixture(t *testing.T, db *gorm.DB) promotionFixture {
	t.Helper()

	stage := models.Stage{Name: "Primary", SortOrder: 1}
	require.NoError(t, db.Create(&stage).Error)

	levelOne := models.Level{Name: "Grade 1", StageID: stage.ID, SortOrder: 1}
	levelTwo := models.Level{Name: "Grade 2", StageID: stage.ID, SortOrder: 2}
	require.NoError(t, db.Create(&levelOne).Error)
	require.NoError(t, db.Create(&levelTwo).Error)

	parent := models.User{Name: "Pat Guardian", Email: "pat@example.com", Role: models.RoleParent}
	require.NoError(t, db.Create(&parent).Error)

	year := models.AcademicYear{
		Name:     "2026/2027",
		StartsAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&year).Error)

	studentUser := models.User{Name: "Sam Learner", Email: "sam@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&studentUser).Error)

	student := models.Student{
		UserID:   studentUser.ID,
		Name:     "Sam Learner",
		LevelID:  &levelOne.ID,
		ParentID: &parent.ID,
		Status:   models.StudentStatusActive,
	}
	require.NoError(t, db.Create(&student).Error)

	return promotionFixture{
		parent:   parent,
		year:     year,
		levelOne: levelOne,
		levelTwo: levelTwo,
		student:  student,
	}
}

func TestPromotionRepositoryListPendingByParentOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)
	fx := seedPromotionFixture(t, db)

	siblingUser := models.User{Name: "Sib Learner", Email: "sib@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&siblingUser).Error)
	sibling := models.Student{
		UserID:   siblingUser.ID,
		Name:     "Sib Learner",
		LevelID:  &fx.levelOne.ID,
		ParentID: &fx.parent.ID,
		Status:   models.StudentStatusActive,
	}
	require.NoError(t, db.Create(&sibling).Error)

	older := models.StudentPromotion{
		StudentID:      fx.student.ID,
		ParentID:       &fx.parent.ID,
		AcademicYearID: fx.year.ID,
		FromLevelID:    fx.levelOne.ID,
		ToLevelID:      &fx.levelTwo.ID,
		Status:         models.PromotionStatusPending,
		CreatedAt:      time.Now().Add(-2 * time.Hour),
	}
	newer := models.StudentPromotion{
		StudentID:      sibling.ID,
		ParentID:       &fx.parent.ID,
		AcademicYearID: fx.year.ID,
		FromLevelID:    fx.levelOne.ID,
		ToLevelID:      &fx.levelTwo.ID,
		Status:         models.PromotionStatusPending,
		CreatedAt:      time.Now().Add(-1 * time.Hour),
	}
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&older).Error)

	pending, err := repo.ListPendingByParent(context.Background(), fx.parent.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, older.ID, pending[0].ID, "expected oldest-created record first")
	require.Equal(t, fx.student.Name, pending[0].Student.Name)
	require.Equal(t, fx.levelOne.Name, pending[0].FromLevel.Name)

	again, err := repo.ListPendingByParent(context.Background(), fx.parent.ID)
	require.NoError(t, err)
	require.Equal(t, pending[0].ID, again[0].ID)
	require.Equal(t, pending[1].ID, again[1].ID)
}

func TestPromotionRepositoryRespondApprovesAndMovesLevel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)
	fx := seedPromotionFixture(t, db)

	promotion := models.StudentPromotion{
		StudentID:      fx.student.ID,
		ParentID:       &fx.parent.ID,
		AcademicYearID: fx.year.ID,
		FromLevelID:    fx.levelOne.ID,
		ToLevelID:      &fx.levelTwo.ID,
		Status:         models.PromotionStatusPending,
	}
	require.NoError(t, db.Create(&promotion).Error)

	now := time.Now()
	err := repo.Respond(context.Background(), promotion.ID, PromotionRespond{
		Response:       models.PromotionResponseYes,
		RespondedAt:    now,
		Status:         models.PromotionStatusApproved,
		PromoteToLevel: &fx.levelTwo.ID,
		PromotedAt:     &now,
	})
	require.NoError(t, err)

	updated, err := repo.GetByID(context.Background(), promotion.ID)
	require.NoError(t, err)
	require.Equal(t, models.PromotionStatusCompleted, updated.Status)
	require.NotNil(t, updated.ParentResponse)
	require.Equal(t, models.PromotionResponseYes, *updated.ParentResponse)
	require.NotNil(t, updated.RespondedAt)
	require.NotNil(t, updated.PromotedAt)

	var student models.Student
	require.NoError(t, db.First(&student, fx.student.ID).Error)
	require.NotNil(t, student.LevelID)
	require.Equal(t, fx.levelTwo.ID, *student.LevelID)
}

func TestPromotionRepositoryRespondRejectsKeepsLevel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)
	fx := seedPromotionFixture(t, db)

	promotion := models.StudentPromotion{
		StudentID:      fx.student.ID,
		ParentID:       &fx.parent.ID,
		AcademicYearID: fx.year.ID,
		FromLevelID:    fx.levelOne.ID,
		ToLevelID:      &fx.levelTwo.ID,
		Status:         models.PromotionStatusPending,
	}
	require.NoError(t, db.Create(&promotion).Error)

	err := repo.Respond(context.Background(), promotion.ID, PromotionRespond{
		Response:    models.PromotionResponseNo,
		RespondedAt: time.Now(),
		Status:      models.PromotionStatusRejected,
	})
	require.NoError(t, err)

	updated, err := repo.GetByID(context.Background(), promotion.ID)
	require.NoError(t, err)
	require.Equal(t, models.PromotionStatusRejected, updated.Status)
	require.Nil(t, updated.PromotedAt)

	var student models.Student
	require.NoError(t, db.First(&student, fx.student.ID).Error)
	require.Equal(t, fx.levelOne.ID, *student.LevelID)
}

func TestPromotionRepositoryRespondGuardsDoubleAnswer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)
	fx := seedPromotionFixture(t, db)

	promotion := models.StudentPromotion{
		StudentID:      fx.student.ID,
		ParentID:       &fx.parent.ID,
		AcademicYearID: fx.year.ID,
		FromLevelID:    fx.levelOne.ID,
		ToLevelID:      &fx.levelTwo.ID,
		Status:         models.PromotionStatusPending,
	}
	require.NoError(t, db.Create(&promotion).Error)

	first := PromotionRespond{
		Response:    models.PromotionResponseNo,
		RespondedAt: time.Now(),
		Status:      models.PromotionStatusRejected,
	}
	require.NoError(t, repo.Respond(context.Background(), promotion.ID, first))

	now := time.Now()
	stale := PromotionRespond{
		Response:       models.PromotionResponseYes,
		RespondedAt:    now,
		Status:         models.PromotionStatusApproved,
		PromoteToLevel: &fx.levelTwo.ID,
		PromotedAt:     &now,
	}
	err := repo.Respond(context.Background(), promotion.ID, stale)
	require.ErrorIs(t, err, ErrPromotionAnswered)

	updated, err := repo.GetByID(context.Background(), promotion.ID)
	require.NoError(t, err)
	require.Equal(t, models.PromotionStatusRejected, updated.Status)

	var student models.Student
	require.NoError(t, db.First(&student, fx.student.ID).Error)
	require.Equal(t, fx.levelOne.ID, *student.LevelID, "stale approval must not move the level")
}

func TestPromotionRepositoryCountsAndSkipped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)
	fx := seedPromotionFixture(t, db)

	promotion := models.StudentPromotion{
		StudentID:      fx.student.ID,
		ParentID:       &fx.parent.ID,
		AcademicYearID: fx.year.ID,
		FromLevelID:    fx.levelOne.ID,
		ToLevelID:      &fx.levelTwo.ID,
		Status:         models.PromotionStatusPending,
	}
	require.NoError(t, db.Create(&promotion).Error)

	orphanUser := models.User{Name: "Orphan Learner", Email: "orphan@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&orphanUser).Error)
	orphan := models.Student{
		UserID:  orphanUser.ID,
		Name:    "Orphan Learner",
		LevelID: &fx.levelOne.ID,
		Status:  models.StudentStatusActive,
	}
	require.NoError(t, db.Create(&orphan).Error)

	counts, err := repo.CountsByYear(context.Background(), fx.year.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[models.PromotionStatusPending])

	skipped, err := repo.ListSkippedStudents(context.Background(), fx.year.ID)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	require.Equal(t, orphan.ID, skipped[0].ID)
	require.False(t, skipped[0].HasParent())
}
