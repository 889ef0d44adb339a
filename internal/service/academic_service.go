package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
)

// ErrStageNotFound is returned when a level names an unknown stage.
var ErrStageNotFound = errors.New("stage not found")

// ErrLevelNotFound is returned when a subject names an unknown level.
var ErrLevelNotFound = errors.New("level not found")

// AcademicService manages the school structure: stages, levels, subjects and
// academic years.
type AcademicService interface {
	ListStages(ctx context.Context) ([]dto.StageResponse, error)
	CreateStage(ctx context.Context, payload dto.StageCreateRequest) (dto.StageResponse, error)
	ListLevels(ctx context.Context, stageID *uint) ([]dto.LevelResponse, error)
	CreateLevel(ctx context.Context, payload dto.LevelCreateRequest) (dto.LevelResponse, error)
	ListSubjects(ctx context.Context, levelID *uint) ([]dto.SubjectResponse, error)
	CreateSubject(ctx context.Context, payload dto.SubjectCreateRequest) (dto.SubjectResponse, error)
	ListYears(ctx context.Context) ([]dto.AcademicYearResponse, error)
	CreateYear(ctx context.Context, payload dto.AcademicYearCreateRequest) (dto.AcademicYearResponse, error)
}

type academicService struct {
	repo      repository.AcademicRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAcademicService constructs the academic structure service.
func NewAcademicService(repo repository.AcademicRepository, validate *validator.Validate, logger zerolog.Logger) AcademicService {
	return &academicService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "academic_service").Logger(),
	}
}

func (s *academicService) ListStages(ctx context.Context) ([]dto.StageResponse, error) {
	stages, err := s.repo.ListStages(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.StageResponse, 0, len(stages))
	for _, stage := range stages {
		responses = append(responses, dto.NewStageResponse(stage))
	}

	return responses, nil
}

func (s *academicService) CreateStage(ctx context.Context, payload dto.StageCreateRequest) (dto.StageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StageResponse{}, err
	}

	stage := models.Stage{Name: payload.Name, SortOrder: payload.SortOrder}
	if err := s.repo.CreateStage(ctx, &stage); err != nil {
		return dto.StageResponse{}, err
	}

	s.logger.Info().Uint("stage_id", stage.ID).Str("name", stage.Name).Msg("stage created")

	return dto.NewStageResponse(stage), nil
}

func (s *academicService) ListLevels(ctx context.Context, stageID *uint) ([]dto.LevelResponse, error) {
	levels, err := s.repo.ListLevels(ctx, stageID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.LevelResponse, 0, len(levels))
	for _, level := range levels {
		responses = append(responses, dto.NewLevelResponse(level))
	}

	return responses, nil
}

func (s *academicService) CreateLevel(ctx context.Context, payload dto.LevelCreateRequest) (dto.LevelResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LevelResponse{}, err
	}

	level := models.Level{Name: payload.Name, StageID: payload.StageID, SortOrder: payload.SortOrder}
	if err := s.repo.CreateLevel(ctx, &level); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return dto.LevelResponse{}, ErrStageNotFound
		}
		return dto.LevelResponse{}, err
	}

	s.logger.Info().Uint("level_id", level.ID).Uint("stage_id", level.StageID).Msg("level created")

	return dto.NewLevelResponse(level), nil
}

func (s *academicService) ListSubjects(ctx context.Context, levelID *uint) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.ListSubjects(ctx, levelID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		responses = append(responses, dto.NewSubjectResponse(subject))
	}

	return responses, nil
}

func (s *academicService) CreateSubject(ctx context.Context, payload dto.SubjectCreateRequest) (dto.SubjectResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubjectResponse{}, err
	}

	if _, err := s.repo.GetLevel(ctx, payload.LevelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubjectResponse{}, ErrLevelNotFound
		}
		return dto.SubjectResponse{}, err
	}

	subject := models.Subject{Name: payload.Name, LevelID: payload.LevelID}
	if err := s.repo.CreateSubject(ctx, &subject); err != nil {
		return dto.SubjectResponse{}, err
	}

	return dto.NewSubjectResponse(subject), nil
}

func (s *academicService) ListYears(ctx context.Context) ([]dto.AcademicYearResponse, error) {
	years, err := s.repo.ListYears(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AcademicYearResponse, 0, len(years))
	for _, year := range years {
		responses = append(responses, dto.NewAcademicYearResponse(year))
	}

	return responses, nil
}

// CreateYear opens a new school year and makes it current. The previous
// current year is demoted in the same transaction.
func (s *academicService) CreateYear(ctx context.Context, payload dto.AcademicYearCreateRequest) (dto.AcademicYearResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AcademicYearResponse{}, err
	}

	year := models.AcademicYear{
		Name:     payload.Name,
		StartsAt: payload.StartsAt,
		EndsAt:   payload.EndsAt,
	}
	if err := s.repo.CreateYearAsCurrent(ctx, &year); err != nil {
		return dto.AcademicYearResponse{}, err
	}

	s.logger.Info().Uint("academic_year_id", year.ID).Str("name", year.Name).Msg("academic year opened")

	return dto.NewAcademicYearResponse(year), nil
}
