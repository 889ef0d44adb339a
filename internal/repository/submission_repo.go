package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// SubmissionFilter narrows exercise submission queries.
type SubmissionFilter struct {
	ExerciseID *uint
	StudentID  *uint
	Status     *string
}

// SubmissionRepository defines data operations for exercise submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.ExerciseSubmission, error)
	GetByID(ctx context.Context, id uint) (models.ExerciseSubmission, error)
	Create(ctx context.Context, submission *models.ExerciseSubmission) error
	Update(ctx context.Context, submission *models.ExerciseSubmission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ExerciseSubmission{}).
		Preload("Exercise").
		Preload("Student")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.ExerciseSubmission, error) {
	query := r.baseQuery(ctx)

	if filter.ExerciseID != nil {
		query = query.Where("exercise_id = ?", *filter.ExerciseID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.ExerciseSubmission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.ExerciseSubmission, error) {
	var submission models.ExerciseSubmission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.ExerciseSubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.ExerciseSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.ExerciseSubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}
