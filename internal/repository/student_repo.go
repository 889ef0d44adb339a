package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// StudentRepository defines data operations for student profiles.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	ListActiveWithLevel(ctx context.Context) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateLevel(ctx context.Context, studentID uint, levelID uint) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Preload("Level").First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

// ListActiveWithLevel returns the rollover population: active students that
// currently hold a level assignment.
func (r *studentRepository) ListActiveWithLevel(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).
		Preload("Level").
		Where("status = ?", models.StudentStatusActive).
		Where("level_id IS NOT NULL").
		Order("id ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) UpdateLevel(ctx context.Context, studentID uint, levelID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", studentID).
		Update("level_id", levelID).Error
}
