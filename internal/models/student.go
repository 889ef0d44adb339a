package models

import "time"

const (
	// StudentStatusActive marks a student enrolled in the current year.
	StudentStatusActive = "active"
	// StudentStatusInactive marks a student that left or was archived.
	StudentStatusInactive = "inactive"
)

// Student is the learner profile. LevelID is the mutable level assignment the
// promotion subsystem advances; ParentID links the guardian who answers
// promotion requests and may be absent.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	LevelID   *uint     `gorm:"index" json:"level_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Status    string    `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Level     *Level    `gorm:"foreignKey:LevelID" json:"level,omitempty"`
	Parent    *User     `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}

// HasParent reports whether a guardian is linked to the student.
func (s Student) HasParent() bool {
	return s.ParentID != nil
}
