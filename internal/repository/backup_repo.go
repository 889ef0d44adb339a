package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// BackupRepository persists database export records.
type BackupRepository interface {
	Create(ctx context.Context, record *models.BackupRecord) error
	Update(ctx context.Context, record *models.BackupRecord) error
	List(ctx context.Context, limit int) ([]models.BackupRecord, error)
	TableCounts(ctx context.Context) (map[string]int64, error)
}

type backupRepository struct {
	db *gorm.DB
}

// NewBackupRepository constructs the backup repository.
func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) Create(ctx context.Context, record *models.BackupRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *backupRepository) Update(ctx context.Context, record *models.BackupRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *backupRepository) List(ctx context.Context, limit int) ([]models.BackupRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var records []models.BackupRecord
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// TableCounts produces the manifest body: row counts per exported entity.
func (r *backupRepository) TableCounts(ctx context.Context) (map[string]int64, error) {
	tables := map[string]interface{}{
		"students":           &models.Student{},
		"users":              &models.User{},
		"stages":             &models.Stage{},
		"levels":             &models.Level{},
		"subjects":           &models.Subject{},
		"academic_years":     &models.AcademicYear{},
		"student_promotions": &models.StudentPromotion{},
		"lessons":            &models.Lesson{},
		"exercises":          &models.Exercise{},
		"submissions":        &models.ExerciseSubmission{},
		"messages":           &models.Message{},
		"notifications":      &models.Notification{},
	}

	counts := make(map[string]int64, len(tables))
	for name, model := range tables {
		var count int64
		if err := r.db.WithContext(ctx).Model(model).Count(&count).Error; err != nil {
			return nil, err
		}
		counts[name] = count
	}

	return counts, nil
}
