package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// BackupStatusRunning marks an export still being assembled.
	BackupStatusRunning = "running"
	// BackupStatusCompleted marks a finished export with an uploaded archive.
	BackupStatusCompleted = "completed"
	// BackupStatusFailed marks an export that aborted.
	BackupStatusFailed = "failed"
)

// BackupRecord tracks one database export. The archive itself lives in cloud
// storage; the manifest holds table counts and timing for the admin view.
type BackupRecord struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	Reference  string            `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	TriggerBy  uint              `gorm:"not null" json:"triggered_by"`
	Status     string            `gorm:"size:32;not null;default:running" json:"status"`
	ArchiveURL string            `gorm:"size:512" json:"archive_url"`
	Manifest   datatypes.JSONMap `gorm:"type:json" json:"manifest"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
