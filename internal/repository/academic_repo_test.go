package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

func TestNextLevelOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAcademicRepository(db)
	ctx := context.Background()

	primary := models.Stage{Name: "Primary", SortOrder: 1}
	secondary := models.Stage{Name: "Secondary", SortOrder: 2}
	require.NoError(t, db.Create(&primary).Error)
	require.NoError(t, db.Create(&secondary).Error)

	gradeOne := models.Level{Name: "Grade 1", StageID: primary.ID, SortOrder: 10}
	gradeTwo := models.Level{Name: "Grade 2", StageID: primary.ID, SortOrder: 20}
	gradeSeven := models.Level{Name: "Grade 7", StageID: secondary.ID, SortOrder: 30}
	require.NoError(t, db.Create(&gradeOne).Error)
	require.NoError(t, db.Create(&gradeTwo).Error)
	require.NoError(t, db.Create(&gradeSeven).Error)

	next, err := repo.NextLevel(ctx, gradeOne)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, gradeTwo.ID, next.ID)

	// The last level of a stage has no destination, even when another stage
	// carries a higher sort order.
	next, err = repo.NextLevel(ctx, gradeTwo)
	require.NoError(t, err)
	require.Nil(t, next)
}
