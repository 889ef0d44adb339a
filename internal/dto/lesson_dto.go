package dto

import (
	"time"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// LessonCreateRequest describes the multipart payload for lesson creation.
// The resource file arrives as a separate multipart part.
type LessonCreateRequest struct {
	Title       string `form:"title" validate:"required,min=2,max=255"`
	Description string `form:"description" validate:"omitempty,max=4000"`
	SubjectID   uint   `form:"subject_id" validate:"required,gt=0"`
	TeacherID   uint   `form:"teacher_id" validate:"required,gt=0"`
}

// LessonFilter describes query string filters for listing lessons.
type LessonFilter struct {
	SubjectID *uint `query:"subject_id"`
	TeacherID *uint `query:"teacher_id"`
}

// ExerciseCreateRequest attaches a graded task to a lesson.
type ExerciseCreateRequest struct {
	LessonID uint      `json:"lesson_id" validate:"required,gt=0"`
	Title    string    `json:"title" validate:"required,min=2,max=255"`
	Prompt   string    `json:"prompt" validate:"required,min=2"`
	MaxScore float64   `json:"max_score" validate:"gt=0"`
	DueDate  time.Time `json:"due_date" validate:"required"`
}

// LessonResponse serializes a lesson.
type LessonResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SubjectID   uint      `json:"subject_id"`
	SubjectName string    `json:"subject_name,omitempty"`
	TeacherID   uint      `json:"teacher_id"`
	ResourceURL string    `json:"resource_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExerciseResponse serializes an exercise.
type ExerciseResponse struct {
	ID       uint      `json:"id"`
	LessonID uint      `json:"lesson_id"`
	Title    string    `json:"title"`
	Prompt   string    `json:"prompt"`
	MaxScore float64   `json:"max_score"`
	DueDate  time.Time `json:"due_date"`
}

// NewLessonResponse converts a Lesson model into a DTO.
func NewLessonResponse(model models.Lesson) LessonResponse {
	return LessonResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		SubjectID:   model.SubjectID,
		SubjectName: model.Subject.Name,
		TeacherID:   model.TeacherID,
		ResourceURL: model.ResourceURL,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewLessonResponseSlice converts a slice of models into DTOs.
func NewLessonResponseSlice(lessons []models.Lesson) []LessonResponse {
	responses := make([]LessonResponse, 0, len(lessons))
	for _, lesson := range lessons {
		responses = append(responses, NewLessonResponse(lesson))
	}
	return responses
}

// NewExerciseResponse converts an Exercise model into a DTO.
func NewExerciseResponse(model models.Exercise) ExerciseResponse {
	return ExerciseResponse{
		ID:       model.ID,
		LessonID: model.LessonID,
		Title:    model.Title,
		Prompt:   model.Prompt,
		MaxScore: model.MaxScore,
		DueDate:  model.DueDate,
	}
}
