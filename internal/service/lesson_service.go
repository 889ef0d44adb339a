package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
	"github.com/smartedu-app/smartedu-api/pkg/storage"
)

// Lesson domain errors.
var (
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrUnsupportedResource = errors.New("unsupported resource file type")
)

const maxResourceSizeBytes = 25 << 20

// LessonService manages teaching material and its attached exercises.
type LessonService interface {
	List(ctx context.Context, filter dto.LessonFilter) ([]dto.LessonResponse, error)
	Get(ctx context.Context, id uint) (dto.LessonResponse, error)
	Create(ctx context.Context, payload dto.LessonCreateRequest, resource *multipart.FileHeader) (dto.LessonResponse, error)
	CreateExercise(ctx context.Context, payload dto.ExerciseCreateRequest) (dto.ExerciseResponse, error)
	ListExercises(ctx context.Context, lessonID uint) ([]dto.ExerciseResponse, error)
}

type lessonService struct {
	lessons   repository.LessonRepository
	academic  repository.AcademicRepository
	uploader  storage.Uploader
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewLessonService constructs the lesson service. The uploader is optional;
// without it lessons are created without resource files.
func NewLessonService(lessons repository.LessonRepository, academic repository.AcademicRepository, uploader storage.Uploader, validate *validator.Validate, logger zerolog.Logger) LessonService {
	return &lessonService{
		lessons:   lessons,
		academic:  academic,
		uploader:  uploader,
		validator: validate,
		logger:    logger.With().Str("component", "lesson_service").Logger(),
	}
}

func (s *lessonService) List(ctx context.Context, filter dto.LessonFilter) ([]dto.LessonResponse, error) {
	lessons, err := s.lessons.List(ctx, repository.LessonFilter{
		SubjectID: filter.SubjectID,
		TeacherID: filter.TeacherID,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewLessonResponseSlice(lessons), nil
}

func (s *lessonService) Get(ctx context.Context, id uint) (dto.LessonResponse, error) {
	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonResponse{}, ErrLessonNotFound
		}
		return dto.LessonResponse{}, err
	}

	return dto.NewLessonResponse(lesson), nil
}

// Create stores the lesson and, when a resource file is attached, sniffs its
// real content type and uploads it under a per-subject folder.
func (s *lessonService) Create(ctx context.Context, payload dto.LessonCreateRequest, resource *multipart.FileHeader) (dto.LessonResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}

	subject, err := s.academic.GetSubject(ctx, payload.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonResponse{}, ErrSubjectNotFound
		}
		return dto.LessonResponse{}, err
	}

	lesson := models.Lesson{
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		SubjectID:   payload.SubjectID,
		TeacherID:   payload.TeacherID,
	}

	if resource != nil {
		url, err := s.uploadResource(ctx, subject, resource)
		if err != nil {
			return dto.LessonResponse{}, err
		}
		lesson.ResourceURL = url
	}

	if err := s.lessons.Create(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	lesson.Subject = subject

	s.logger.Info().
		Uint("lesson_id", lesson.ID).
		Uint("subject_id", lesson.SubjectID).
		Bool("has_resource", lesson.ResourceURL != "").
		Msg("lesson created")

	return dto.NewLessonResponse(lesson), nil
}

func (s *lessonService) CreateExercise(ctx context.Context, payload dto.ExerciseCreateRequest) (dto.ExerciseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExerciseResponse{}, err
	}

	if _, err := s.lessons.GetByID(ctx, payload.LessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExerciseResponse{}, ErrLessonNotFound
		}
		return dto.ExerciseResponse{}, err
	}

	exercise := models.Exercise{
		LessonID: payload.LessonID,
		Title:    strings.TrimSpace(payload.Title),
		Prompt:   payload.Prompt,
		MaxScore: payload.MaxScore,
		DueDate:  payload.DueDate,
	}
	if err := s.lessons.CreateExercise(ctx, &exercise); err != nil {
		return dto.ExerciseResponse{}, err
	}

	return dto.NewExerciseResponse(exercise), nil
}

func (s *lessonService) ListExercises(ctx context.Context, lessonID uint) ([]dto.ExerciseResponse, error) {
	if _, err := s.lessons.GetByID(ctx, lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}

	exercises, err := s.lessons.ListExercises(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ExerciseResponse, 0, len(exercises))
	for _, exercise := range exercises {
		responses = append(responses, dto.NewExerciseResponse(exercise))
	}

	return responses, nil
}

func (s *lessonService) uploadResource(ctx context.Context, subject models.Subject, file *multipart.FileHeader) (string, error) {
	if s.uploader == nil {
		return "", errors.New("resource uploads are not configured")
	}
	if file.Size > maxResourceSizeBytes {
		return "", fmt.Errorf("resource file exceeds %d bytes", maxResourceSizeBytes)
	}

	if err := validateResourceType(file); err != nil {
		return "", err
	}

	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open resource file: %w", err)
	}
	defer reader.Close()

	folder := "subjects/" + strconv.FormatUint(uint64(subject.ID), 10)

	return s.uploader.Upload(ctx, folder, file.Filename, reader)
}

func validateResourceType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{
		"application/pdf",
		"image/png",
		"image/jpeg",
		"video/mp4",
		"audio/mpeg",
		"text/plain",
	}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedResource, mime.String())
}
