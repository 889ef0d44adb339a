package dto

import (
	"time"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// SubmissionCreateRequest is a student's answer to an exercise.
type SubmissionCreateRequest struct {
	ExerciseID uint   `json:"exercise_id" validate:"required,gt=0"`
	StudentID  uint   `json:"student_id" validate:"required,gt=0"`
	Answer     string `json:"answer" validate:"required,min=1"`
}

// SubmissionGradeRequest finalizes a teacher's grade.
type SubmissionGradeRequest struct {
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback" validate:"omitempty,max=4000"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID         uint       `json:"id"`
	ExerciseID uint       `json:"exercise_id"`
	StudentID  uint       `json:"student_id"`
	Answer     string     `json:"answer"`
	Status     string     `json:"status"`
	Grade      *float64   `json:"grade"`
	Feedback   string     `json:"feedback"`
	AIFeedback string     `json:"ai_feedback,omitempty"`
	GradedBy   *uint      `json:"graded_by"`
	GradedAt   *time.Time `json:"graded_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewSubmissionResponse converts an ExerciseSubmission model into a DTO.
func NewSubmissionResponse(model models.ExerciseSubmission) SubmissionResponse {
	return SubmissionResponse{
		ID:         model.ID,
		ExerciseID: model.ExerciseID,
		StudentID:  model.StudentID,
		Answer:     model.Answer,
		Status:     model.Status,
		Grade:      model.Grade,
		Feedback:   model.Feedback,
		AIFeedback: model.AIFeedback,
		GradedBy:   model.GradedBy,
		GradedAt:   model.GradedAt,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.ExerciseSubmission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
