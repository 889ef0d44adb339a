package models

import "time"

// Promotion statuses. Transitions are monotonic: pending -> approved ->
// completed, or pending -> rejected. A record never returns to pending once
// the parent has answered.
const (
	PromotionStatusPending   = "pending"
	PromotionStatusApproved  = "approved"
	PromotionStatusRejected  = "rejected"
	PromotionStatusCompleted = "completed"
)

// Normalized parent answers stored on a promotion record.
const (
	PromotionResponseYes = "yes"
	PromotionResponseNo  = "no"
)

// StudentPromotion is one promotion decision per (student, academic year).
// ToLevelID is nil when the student sits in the final level of a stage and no
// destination exists. ParentResponse and RespondedAt are set together or not
// at all.
type StudentPromotion struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StudentID      uint       `gorm:"not null;uniqueIndex:idx_promotion_student_year" json:"student_id"`
	ParentID       *uint      `gorm:"index" json:"parent_id"`
	AcademicYearID uint       `gorm:"not null;uniqueIndex:idx_promotion_student_year" json:"academic_year_id"`
	FromLevelID    uint       `gorm:"not null" json:"from_level_id"`
	ToLevelID      *uint      `json:"to_level_id"`
	Status         string     `gorm:"size:32;not null;default:pending;index" json:"status"`
	ParentResponse *string    `gorm:"size:8" json:"parent_response"`
	RespondedAt    *time.Time `json:"responded_at"`
	PromotedAt     *time.Time `json:"promoted_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Student      Student      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student,omitempty"`
	AcademicYear AcademicYear `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"academic_year,omitempty"`
	FromLevel    Level        `gorm:"foreignKey:FromLevelID" json:"from_level,omitempty"`
	ToLevel      *Level       `gorm:"foreignKey:ToLevelID" json:"to_level,omitempty"`
}

// IsAnswered reports whether the owning parent already responded.
func (p StudentPromotion) IsAnswered() bool {
	return p.ParentResponse != nil
}

// IsFinalLevel reports whether no destination level exists for the record.
func (p StudentPromotion) IsFinalLevel() bool {
	return p.ToLevelID == nil
}
