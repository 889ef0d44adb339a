package dto

import (
	"time"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// EndOfStageLabel is the destination shown when a promotion has no further
// level, i.e. the student sits in the final level of a stage.
const EndOfStageLabel = "End of stage"

// PromotionRespondRequest is the body a parent posts to answer a promotion.
type PromotionRespondRequest struct {
	PromotionID uint   `json:"promotionId" validate:"required,gt=0"`
	Response    string `json:"response" validate:"required"`
}

// PromotionRespondResult reports the outcome of a parent's answer.
type PromotionRespondResult struct {
	Success    bool   `json:"success"`
	IsApproved bool   `json:"isApproved"`
	Promoted   bool   `json:"promoted"`
	Message    string `json:"message"`
}

// PendingPromotionResponse is one promotion awaiting the calling parent,
// expanded with display names for the gate screen.
type PendingPromotionResponse struct {
	ID             uint      `json:"id"`
	StudentID      uint      `json:"student_id"`
	StudentName    string    `json:"student_name"`
	AcademicYearID uint      `json:"academic_year_id"`
	FromLevelID    uint      `json:"from_level_id"`
	FromLevelName  string    `json:"from_level_name"`
	ToLevelID      *uint     `json:"to_level_id"`
	ToLevelName    string    `json:"to_level_name"`
	Final          bool      `json:"final"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewPendingPromotionResponse converts a StudentPromotion model into a DTO.
func NewPendingPromotionResponse(model models.StudentPromotion) PendingPromotionResponse {
	response := PendingPromotionResponse{
		ID:             model.ID,
		StudentID:      model.StudentID,
		StudentName:    model.Student.Name,
		AcademicYearID: model.AcademicYearID,
		FromLevelID:    model.FromLevelID,
		FromLevelName:  model.FromLevel.Name,
		ToLevelID:      model.ToLevelID,
		ToLevelName:    EndOfStageLabel,
		Final:          model.ToLevelID == nil,
		CreatedAt:      model.CreatedAt,
	}

	if model.ToLevel != nil {
		response.ToLevelName = model.ToLevel.Name
	}

	return response
}

// NewPendingPromotionResponseSlice converts a slice of models into DTOs.
func NewPendingPromotionResponseSlice(promotions []models.StudentPromotion) []PendingPromotionResponse {
	responses := make([]PendingPromotionResponse, 0, len(promotions))
	for _, promotion := range promotions {
		responses = append(responses, NewPendingPromotionResponse(promotion))
	}
	return responses
}

// PromotionStats aggregates record counts for one academic year.
type PromotionStats struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Approved     int64 `json:"approved"`
	Rejected     int64 `json:"rejected"`
	Completed    int64 `json:"completed"`
	ResponseRate int   `json:"responseRate"`
}

// PromotionDetail is the full record view shown on the director dashboard.
type PromotionDetail struct {
	ID             uint       `json:"id"`
	StudentID      uint       `json:"student_id"`
	StudentName    string     `json:"student_name"`
	ParentID       *uint      `json:"parent_id"`
	ParentName     string     `json:"parent_name,omitempty"`
	FromLevelName  string     `json:"from_level_name"`
	ToLevelName    string     `json:"to_level_name"`
	Status         string     `json:"status"`
	ParentResponse *string    `json:"parent_response"`
	RespondedAt    *time.Time `json:"responded_at"`
	PromotedAt     *time.Time `json:"promoted_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewPromotionDetail converts a StudentPromotion model into the detail DTO.
func NewPromotionDetail(model models.StudentPromotion) PromotionDetail {
	detail := PromotionDetail{
		ID:             model.ID,
		StudentID:      model.StudentID,
		StudentName:    model.Student.Name,
		ParentID:       model.ParentID,
		FromLevelName:  model.FromLevel.Name,
		ToLevelName:    EndOfStageLabel,
		Status:         model.Status,
		ParentResponse: model.ParentResponse,
		RespondedAt:    model.RespondedAt,
		PromotedAt:     model.PromotedAt,
		CreatedAt:      model.CreatedAt,
	}

	if model.ToLevel != nil {
		detail.ToLevelName = model.ToLevel.Name
	}
	if model.Student.Parent != nil {
		detail.ParentName = model.Student.Parent.Name
	}

	return detail
}

// SkippedStudent is a student the rollover did not address: a level holder
// with no promotion record for the year.
type SkippedStudent struct {
	StudentID uint   `json:"student_id"`
	Name      string `json:"name"`
	LevelID   *uint  `json:"level_id"`
	LevelName string `json:"level_name,omitempty"`
	HasParent bool   `json:"has_parent"`
}

// NewSkippedStudent converts a Student model into the report DTO.
func NewSkippedStudent(student models.Student) SkippedStudent {
	skipped := SkippedStudent{
		StudentID: student.ID,
		Name:      student.Name,
		LevelID:   student.LevelID,
		HasParent: student.HasParent(),
	}

	if student.Level != nil {
		skipped.LevelName = student.Level.Name
	}

	return skipped
}

// PromotionYearStats is the stats endpoint payload.
type PromotionYearStats struct {
	Stats           PromotionStats    `json:"stats"`
	Promotions      []PromotionDetail `json:"promotions"`
	SkippedStudents []SkippedStudent  `json:"skippedStudents"`
}

// RolloverResult summarizes one year-rollover run.
type RolloverResult struct {
	AcademicYearID  uint `json:"academic_year_id"`
	Created         int  `json:"created"`
	SkippedNoParent int  `json:"skipped_no_parent"`
	AlreadyExisted  int  `json:"already_existed"`
}
