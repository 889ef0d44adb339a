package models

import "time"

// Stage is an educational stage, e.g. primary or secondary. Levels inside a
// stage are ordered by SortOrder; promotions only move students within the
// stage.
type Stage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Levels    []Level   `json:"levels,omitempty"`
}

// Level is one grade within a stage.
type Level struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	StageID   uint      `gorm:"not null;index" json:"stage_id"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Stage     *Stage    `json:"stage,omitempty"`
}

// Subject is a taught subject bound to a level.
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	LevelID   uint      `gorm:"not null;index" json:"level_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Level     *Level    `json:"level,omitempty"`
}

// AcademicYear is a school year. Exactly one year carries IsCurrent at a
// time; creating a new year moves the flag.
type AcademicYear struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	StartsAt  time.Time `gorm:"not null" json:"starts_at"`
	EndsAt    time.Time `gorm:"not null" json:"ends_at"`
	IsCurrent bool      `gorm:"not null;default:false;index" json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
