package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/observability"
	"github.com/smartedu-app/smartedu-api/internal/repository"
)

// PromotionRolloverService creates the promotion batch for an academic year:
// one pending record per eligible student, addressed to the student's parent.
type PromotionRolloverService interface {
	Rollover(ctx context.Context, actorID uint, yearID uint) (dto.RolloverResult, error)
}

type promotionRolloverService struct {
	promotions    repository.PromotionRepository
	students      repository.StudentRepository
	users         repository.UserRepository
	academic      repository.AcademicRepository
	notifications NotificationService
	activity      ActivityRecorder
	cache         *redis.Client
	logger        zerolog.Logger
	now           func() time.Time
}

// NewPromotionRolloverService constructs the rollover service.
func NewPromotionRolloverService(promotions repository.PromotionRepository, students repository.StudentRepository, users repository.UserRepository, academic repository.AcademicRepository, notifications NotificationService, activity ActivityRecorder, cache *redis.Client, logger zerolog.Logger) PromotionRolloverService {
	return &promotionRolloverService{
		promotions:    promotions,
		students:      students,
		users:         users,
		academic:      academic,
		notifications: notifications,
		activity:      activity,
		cache:         cache,
		logger:        logger.With().Str("component", "promotion_rollover_service").Logger(),
		now:           time.Now,
	}
}

// Rollover walks every active student holding a level and opens a pending
// promotion for the year. Students without a linked parent are skipped, since
// nobody could ever answer their record; they surface later in the
// skipped-students report. Re-running the rollover is safe: students already
// holding a record for the year are counted, not duplicated.
func (s *promotionRolloverService) Rollover(ctx context.Context, actorID uint, yearID uint) (dto.RolloverResult, error) {
	if _, err := s.academic.GetYear(ctx, yearID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RolloverResult{}, ErrAcademicYearNotFound
		}
		return dto.RolloverResult{}, err
	}

	students, err := s.students.ListActiveWithLevel(ctx)
	if err != nil {
		return dto.RolloverResult{}, err
	}

	result := dto.RolloverResult{AcademicYearID: yearID}

	for _, student := range students {
		if !student.HasParent() {
			result.SkippedNoParent++
			continue
		}

		exists, err := s.promotions.ExistsForYear(ctx, student.ID, yearID)
		if err != nil {
			return result, err
		}
		if exists {
			result.AlreadyExisted++
			continue
		}

		if student.Level == nil {
			level, err := s.academic.GetLevel(ctx, *student.LevelID)
			if err != nil {
				return result, err
			}
			student.Level = &level
		}

		next, err := s.academic.NextLevel(ctx, *student.Level)
		if err != nil {
			return result, err
		}

		promotion := models.StudentPromotion{
			StudentID:      student.ID,
			ParentID:       student.ParentID,
			AcademicYearID: yearID,
			FromLevelID:    *student.LevelID,
			Status:         models.PromotionStatusPending,
		}
		if next != nil {
			toLevelID := next.ID
			promotion.ToLevelID = &toLevelID
		}

		if err := s.promotions.Create(ctx, &promotion); err != nil {
			return result, err
		}
		result.Created++

		observability.RolloverRecordsCreated().Inc()
		s.notifyParent(ctx, student, next)
	}

	InvalidatePromotionStats(ctx, s.cache, yearID)

	s.logger.Info().
		Uint("academic_year_id", yearID).
		Int("created", result.Created).
		Int("skipped_no_parent", result.SkippedNoParent).
		Int("already_existed", result.AlreadyExisted).
		Msg("promotion rollover finished")

	s.recordActivity(ctx, actorID, yearID, result)
	s.notifyDirectors(ctx, result)

	return result, nil
}

// notifyDirectors publishes the run summary to every director so the
// dashboard owners know a batch went out without polling the stats endpoint.
func (s *promotionRolloverService) notifyDirectors(ctx context.Context, result dto.RolloverResult) {
	if s.notifications == nil || s.users == nil || result.Created == 0 {
		return
	}

	directors, err := s.users.ListByRole(ctx, models.RoleDirector)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list directors for rollover summary")
		return
	}

	for _, director := range directors {
		_, err := s.notifications.Publish(ctx, dto.NotificationCreateRequest{
			UserID: director.ID,
			Title:  "Promotion rollover finished",
			Type:   models.NotificationTypeGeneric,
			Message: fmt.Sprintf("%d promotion requests were sent to parents, %d students have no linked parent and were skipped.",
				result.Created, result.SkippedNoParent),
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("user_id", director.ID).Msg("failed to notify director about rollover")
		}
	}
}

func (s *promotionRolloverService) notifyParent(ctx context.Context, student models.Student, next *models.Level) {
	if s.notifications == nil || student.ParentID == nil {
		return
	}

	destination := dto.EndOfStageLabel
	if next != nil {
		destination = next.Name
	}

	_, err := s.notifications.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  *student.ParentID,
		Title:   "Promotion decision needed",
		Type:    models.NotificationTypePromotion,
		Message: "Please review the promotion of " + student.Name + " to " + destination + ".",
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to notify parent about rollover")
	}
}

func (s *promotionRolloverService) recordActivity(ctx context.Context, actorID uint, yearID uint, result dto.RolloverResult) {
	if s.activity == nil {
		return
	}

	entityID := yearID
	err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actorID,
		ActorRole:  models.RoleDirector,
		Action:     "promotion_rollover",
		EntityType: "academic_year",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"created":           result.Created,
			"skipped_no_parent": result.SkippedNoParent,
			"already_existed":   result.AlreadyExisted,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("academic_year_id", yearID).Msg("failed to record rollover activity")
	}
}
