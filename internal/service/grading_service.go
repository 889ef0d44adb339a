package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
	"github.com/smartedu-app/smartedu-api/pkg/ai"
)

// Grading domain errors.
var (
	ErrExerciseNotFound   = errors.New("exercise not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyGraded      = errors.New("submission already graded")
	ErrScoreOutOfRange    = errors.New("score exceeds the exercise max score")
)

// GradingService handles exercise submissions and their grading. When an AI
// reviewer is configured it pre-annotates each submission; the teacher's grade
// is always the final word.
type GradingService interface {
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	List(ctx context.Context, exerciseID, studentID *uint, status *string) ([]dto.SubmissionResponse, error)
	Grade(ctx context.Context, submissionID uint, teacherID uint, payload dto.SubmissionGradeRequest) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	lessons     repository.LessonRepository
	reviewer    ai.Reviewer
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service. The reviewer is optional.
func NewGradingService(submissions repository.SubmissionRepository, lessons repository.LessonRepository, reviewer ai.Reviewer, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		submissions: submissions,
		lessons:     lessons,
		reviewer:    reviewer,
		validator:   validate,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

// Submit stores the answer and, when a reviewer is available, attaches AI
// feedback. Review failures never block the submission itself.
func (s *gradingService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	exercise, err := s.lessons.GetExercise(ctx, payload.ExerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrExerciseNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission := models.ExerciseSubmission{
		ExerciseID: payload.ExerciseID,
		StudentID:  payload.StudentID,
		Answer:     payload.Answer,
		Status:     models.ExerciseSubmissionStatusSubmitted,
	}

	if s.reviewer != nil {
		review, err := s.reviewer.Review(ctx, ai.ReviewInput{
			ExerciseTitle: exercise.Title,
			Prompt:        exercise.Prompt,
			MaxScore:      exercise.MaxScore,
			Answer:        payload.Answer,
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("exercise_id", exercise.ID).Msg("ai review failed, storing submission without feedback")
		} else {
			submission.AIFeedback = review.Feedback
		}
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("exercise_id", submission.ExerciseID).
		Uint("student_id", submission.StudentID).
		Msg("exercise answer submitted")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *gradingService) List(ctx context.Context, exerciseID, studentID *uint, status *string) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		ExerciseID: exerciseID,
		StudentID:  studentID,
		Status:     status,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// Grade finalizes the score. A submission is graded at most once.
func (s *gradingService) Grade(ctx context.Context, submissionID uint, teacherID uint, payload dto.SubmissionGradeRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.IsGraded() {
		return dto.SubmissionResponse{}, ErrAlreadyGraded
	}
	if payload.Score > submission.Exercise.MaxScore {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %.1f > %.1f", ErrScoreOutOfRange, payload.Score, submission.Exercise.MaxScore)
	}

	gradedAt := s.now().UTC()
	score := payload.Score
	submission.Grade = &score
	submission.Feedback = payload.Feedback
	submission.Status = models.ExerciseSubmissionStatusGraded
	submission.GradedBy = &teacherID
	submission.GradedAt = &gradedAt

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("graded_by", teacherID).
		Float64("score", score).
		Msg("submission graded")

	return dto.NewSubmissionResponse(submission), nil
}
