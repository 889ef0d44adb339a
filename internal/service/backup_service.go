package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
	"github.com/smartedu-app/smartedu-api/pkg/storage"
)

// BackupService runs database exports and lists past runs for the director
// dashboard.
type BackupService interface {
	Run(ctx context.Context, triggeredBy uint) (dto.BackupResponse, error)
	List(ctx context.Context, limit int) ([]dto.BackupResponse, error)
}

type backupService struct {
	repo     repository.BackupRepository
	exporter BackupExporter
	uploader storage.Uploader
	activity ActivityRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

// BackupExporter produces the export archive content. Split out so tests can
// run the manifest flow without touching pg_dump.
type BackupExporter interface {
	Export(ctx context.Context) (name string, content io.Reader, err error)
}

// NewBackupService constructs the backup service. The uploader is optional;
// without it the manifest is recorded but no archive is stored.
func NewBackupService(repo repository.BackupRepository, exporter BackupExporter, uploader storage.Uploader, activity ActivityRecorder, logger zerolog.Logger) BackupService {
	return &backupService{
		repo:     repo,
		exporter: exporter,
		uploader: uploader,
		activity: activity,
		logger:   logger.With().Str("component", "backup_service").Logger(),
		now:      time.Now,
	}
}

// Run executes one export: the record is created running, the manifest is
// assembled from live table counts, the archive is uploaded, and the record
// settles as completed or failed.
func (s *backupService) Run(ctx context.Context, triggeredBy uint) (dto.BackupResponse, error) {
	startedAt := s.now().UTC()
	record := models.BackupRecord{
		Reference: "bak-" + uuid.NewString(),
		TriggerBy: triggeredBy,
		Status:    models.BackupStatusRunning,
		StartedAt: startedAt,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		return dto.BackupResponse{}, err
	}

	counts, err := s.repo.TableCounts(ctx)
	if err != nil {
		return s.fail(ctx, record, err)
	}

	manifest := datatypes.JSONMap{}
	for table, count := range counts {
		manifest[table] = count
	}
	record.Manifest = manifest

	if s.exporter != nil && s.uploader != nil {
		name, content, err := s.exporter.Export(ctx)
		if err != nil {
			return s.fail(ctx, record, err)
		}

		url, err := s.uploader.Upload(ctx, "backups", name, content)
		if err != nil {
			return s.fail(ctx, record, err)
		}
		record.ArchiveURL = url
	}

	finishedAt := s.now().UTC()
	record.Status = models.BackupStatusCompleted
	record.FinishedAt = &finishedAt
	if err := s.repo.Update(ctx, &record); err != nil {
		return dto.BackupResponse{}, err
	}

	s.logger.Info().
		Str("reference", record.Reference).
		Dur("took", finishedAt.Sub(startedAt)).
		Msg("backup completed")

	s.recordActivity(ctx, triggeredBy, record)

	return dto.NewBackupResponse(record), nil
}

func (s *backupService) List(ctx context.Context, limit int) ([]dto.BackupResponse, error) {
	records, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewBackupResponseSlice(records), nil
}

func (s *backupService) fail(ctx context.Context, record models.BackupRecord, cause error) (dto.BackupResponse, error) {
	finishedAt := s.now().UTC()
	record.Status = models.BackupStatusFailed
	record.FinishedAt = &finishedAt
	if err := s.repo.Update(ctx, &record); err != nil {
		s.logger.Error().Err(err).Str("reference", record.Reference).Msg("failed to mark backup failed")
	}

	s.logger.Error().Err(cause).Str("reference", record.Reference).Msg("backup failed")

	return dto.BackupResponse{}, cause
}

func (s *backupService) recordActivity(ctx context.Context, triggeredBy uint, record models.BackupRecord) {
	if s.activity == nil {
		return
	}

	entityID := record.ID
	err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    triggeredBy,
		ActorRole:  models.RoleDirector,
		Action:     "backup_run",
		EntityType: "backup",
		EntityID:   &entityID,
		Metadata:   map[string]interface{}{"reference": record.Reference},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("reference", record.Reference).Msg("failed to record backup activity")
	}
}
