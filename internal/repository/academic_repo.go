package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// AcademicRepository defines data operations for the academic structure:
// stages, levels, subjects and academic years.
type AcademicRepository interface {
	ListStages(ctx context.Context) ([]models.Stage, error)
	CreateStage(ctx context.Context, stage *models.Stage) error
	ListLevels(ctx context.Context, stageID *uint) ([]models.Level, error)
	CreateLevel(ctx context.Context, level *models.Level) error
	GetLevel(ctx context.Context, id uint) (models.Level, error)
	NextLevel(ctx context.Context, level models.Level) (*models.Level, error)
	ListSubjects(ctx context.Context, levelID *uint) ([]models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	GetSubject(ctx context.Context, id uint) (models.Subject, error)
	ListYears(ctx context.Context) ([]models.AcademicYear, error)
	GetYear(ctx context.Context, id uint) (models.AcademicYear, error)
	CreateYearAsCurrent(ctx context.Context, year *models.AcademicYear) error
}

type academicRepository struct {
	db *gorm.DB
}

// NewAcademicRepository instantiates the repository.
func NewAcademicRepository(db *gorm.DB) AcademicRepository {
	return &academicRepository{db: db}
}

func (r *academicRepository) ListStages(ctx context.Context) ([]models.Stage, error) {
	var stages []models.Stage
	if err := r.db.WithContext(ctx).
		Preload("Levels", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("sort_order ASC").
		Find(&stages).Error; err != nil {
		return nil, err
	}

	return stages, nil
}

func (r *academicRepository) CreateStage(ctx context.Context, stage *models.Stage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

func (r *academicRepository) ListLevels(ctx context.Context, stageID *uint) ([]models.Level, error) {
	query := r.db.WithContext(ctx).Model(&models.Level{}).Preload("Stage")
	if stageID != nil {
		query = query.Where("stage_id = ?", *stageID)
	}

	var levels []models.Level
	if err := query.Order("stage_id ASC, sort_order ASC").Find(&levels).Error; err != nil {
		return nil, err
	}

	return levels, nil
}

func (r *academicRepository) CreateLevel(ctx context.Context, level *models.Level) error {
	return r.db.WithContext(ctx).Create(level).Error
}

func (r *academicRepository) GetLevel(ctx context.Context, id uint) (models.Level, error) {
	var level models.Level
	if err := r.db.WithContext(ctx).Preload("Stage").First(&level, id).Error; err != nil {
		return models.Level{}, err
	}

	return level, nil
}

// NextLevel returns the level ordered directly after the given one within the
// same stage, or nil when the level is the last of its stage.
func (r *academicRepository) NextLevel(ctx context.Context, level models.Level) (*models.Level, error) {
	var next models.Level
	err := r.db.WithContext(ctx).
		Where("stage_id = ?", level.StageID).
		Where("sort_order > ?", level.SortOrder).
		Order("sort_order ASC").
		First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &next, nil
}

func (r *academicRepository) ListSubjects(ctx context.Context, levelID *uint) ([]models.Subject, error) {
	query := r.db.WithContext(ctx).Model(&models.Subject{}).Preload("Level")
	if levelID != nil {
		query = query.Where("level_id = ?", *levelID)
	}

	var subjects []models.Subject
	if err := query.Order("id ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}

	return subjects, nil
}

func (r *academicRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *academicRepository) GetSubject(ctx context.Context, id uint) (models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).Preload("Level.Stage").First(&subject, id).Error; err != nil {
		return models.Subject{}, err
	}

	return subject, nil
}

func (r *academicRepository) ListYears(ctx context.Context) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	if err := r.db.WithContext(ctx).Order("starts_at DESC").Find(&years).Error; err != nil {
		return nil, err
	}

	return years, nil
}

func (r *academicRepository) GetYear(ctx context.Context, id uint) (models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.WithContext(ctx).First(&year, id).Error; err != nil {
		return models.AcademicYear{}, err
	}

	return year, nil
}

// CreateYearAsCurrent inserts the year and moves the current flag to it in a
// single transaction.
func (r *academicRepository) CreateYearAsCurrent(ctx context.Context, year *models.AcademicYear) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AcademicYear{}).
			Where("is_current = ?", true).
			Update("is_current", false).Error; err != nil {
			return err
		}

		year.IsCurrent = true
		return tx.Create(year).Error
	})
}
