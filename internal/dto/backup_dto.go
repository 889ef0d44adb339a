package dto

import (
	"time"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// BackupResponse serializes a backup record for the admin view.
type BackupResponse struct {
	ID         uint                   `json:"id"`
	Reference  string                 `json:"reference"`
	Status     string                 `json:"status"`
	ArchiveURL string                 `json:"archive_url,omitempty"`
	Manifest   map[string]interface{} `json:"manifest"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at"`
}

// NewBackupResponse converts a BackupRecord model into a DTO.
func NewBackupResponse(model models.BackupRecord) BackupResponse {
	return BackupResponse{
		ID:         model.ID,
		Reference:  model.Reference,
		Status:     model.Status,
		ArchiveURL: model.ArchiveURL,
		Manifest:   model.Manifest,
		StartedAt:  model.StartedAt,
		FinishedAt: model.FinishedAt,
	}
}

// NewBackupResponseSlice converts a slice of models into DTOs.
func NewBackupResponseSlice(records []models.BackupRecord) []BackupResponse {
	responses := make([]BackupResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewBackupResponse(record))
	}
	return responses
}
