package dto

import (
	"time"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// StageCreateRequest creates a new educational stage.
type StageCreateRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// LevelCreateRequest creates a level inside a stage.
type LevelCreateRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	StageID   uint   `json:"stage_id" validate:"required,gt=0"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// SubjectCreateRequest creates a subject bound to a level.
type SubjectCreateRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=255"`
	LevelID uint   `json:"level_id" validate:"required,gt=0"`
}

// AcademicYearCreateRequest creates a new academic year; the new year always
// becomes the current one.
type AcademicYearCreateRequest struct {
	Name     string    `json:"name" validate:"required,min=4,max=64"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

// StageResponse serializes a stage with its ordered levels.
type StageResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	SortOrder int             `json:"sort_order"`
	Levels    []LevelResponse `json:"levels"`
}

// LevelResponse serializes a level.
type LevelResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	StageID   uint   `json:"stage_id"`
	SortOrder int    `json:"sort_order"`
}

// SubjectResponse serializes a subject.
type SubjectResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	LevelID uint   `json:"level_id"`
}

// AcademicYearResponse serializes an academic year.
type AcademicYearResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	IsCurrent bool      `json:"is_current"`
}

// NewStageResponse converts a Stage model into a DTO.
func NewStageResponse(model models.Stage) StageResponse {
	levels := make([]LevelResponse, 0, len(model.Levels))
	for _, level := range model.Levels {
		levels = append(levels, NewLevelResponse(level))
	}

	return StageResponse{
		ID:        model.ID,
		Name:      model.Name,
		SortOrder: model.SortOrder,
		Levels:    levels,
	}
}

// NewLevelResponse converts a Level model into a DTO.
func NewLevelResponse(model models.Level) LevelResponse {
	return LevelResponse{
		ID:        model.ID,
		Name:      model.Name,
		StageID:   model.StageID,
		SortOrder: model.SortOrder,
	}
}

// NewSubjectResponse converts a Subject model into a DTO.
func NewSubjectResponse(model models.Subject) SubjectResponse {
	return SubjectResponse{
		ID:      model.ID,
		Name:    model.Name,
		LevelID: model.LevelID,
	}
}

// NewAcademicYearResponse converts an AcademicYear model into a DTO.
func NewAcademicYearResponse(model models.AcademicYear) AcademicYearResponse {
	return AcademicYearResponse{
		ID:        model.ID,
		Name:      model.Name,
		StartsAt:  model.StartsAt,
		EndsAt:    model.EndsAt,
		IsCurrent: model.IsCurrent,
	}
}
