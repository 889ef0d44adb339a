package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// LessonFilter narrows lesson queries.
type LessonFilter struct {
	SubjectID *uint
	TeacherID *uint
}

// LessonRepository defines data operations for lessons and exercises.
type LessonRepository interface {
	List(ctx context.Context, filter LessonFilter) ([]models.Lesson, error)
	GetByID(ctx context.Context, id uint) (models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	CreateExercise(ctx context.Context, exercise *models.Exercise) error
	GetExercise(ctx context.Context, id uint) (models.Exercise, error)
	ListExercises(ctx context.Context, lessonID uint) ([]models.Exercise, error)
}

type lessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository instantiates the repository.
func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

func (r *lessonRepository) List(ctx context.Context, filter LessonFilter) ([]models.Lesson, error) {
	query := r.db.WithContext(ctx).Model(&models.Lesson{}).Preload("Subject.Level")

	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	var lessons []models.Lesson
	if err := query.Order("created_at DESC").Find(&lessons).Error; err != nil {
		return nil, err
	}

	return lessons, nil
}

func (r *lessonRepository) GetByID(ctx context.Context, id uint) (models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).Preload("Subject.Level").First(&lesson, id).Error; err != nil {
		return models.Lesson{}, err
	}

	return lesson, nil
}

func (r *lessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *lessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Save(lesson).Error
}

func (r *lessonRepository) CreateExercise(ctx context.Context, exercise *models.Exercise) error {
	return r.db.WithContext(ctx).Create(exercise).Error
}

func (r *lessonRepository) GetExercise(ctx context.Context, id uint) (models.Exercise, error) {
	var exercise models.Exercise
	if err := r.db.WithContext(ctx).Preload("Lesson").First(&exercise, id).Error; err != nil {
		return models.Exercise{}, err
	}

	return exercise, nil
}

func (r *lessonRepository) ListExercises(ctx context.Context, lessonID uint) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := r.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC").
		Find(&exercises).Error; err != nil {
		return nil, err
	}

	return exercises, nil
}
