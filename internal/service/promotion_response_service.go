package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/observability"
	"github.com/smartedu-app/smartedu-api/internal/repository"
)

// Sentinel errors mapped to HTTP statuses by the handler layer.
var (
	ErrUnauthorized      = errors.New("caller is not allowed to answer promotions")
	ErrInvalidResponse   = errors.New("response must be yes or no")
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrNotPromotionOwner = errors.New("promotion belongs to another parent")
)

// PromotionResponsePolicy tunes how final-level approvals are settled.
type PromotionResponsePolicy struct {
	// CompleteFinalLevel marks an approved end-of-stage record completed
	// immediately instead of leaving it for an out-of-band graduation step.
	CompleteFinalLevel bool
}

// PromotionResponseService is the write side of the promotion workflow: it
// applies a parent's answer and settles the record.
type PromotionResponseService interface {
	Respond(ctx context.Context, parentID uint, role string, payload dto.PromotionRespondRequest) (dto.PromotionRespondResult, error)
}

type promotionResponseService struct {
	promotions    repository.PromotionRepository
	notifications NotificationService
	activity      ActivityRecorder
	cache         *redis.Client
	policy        PromotionResponsePolicy
	validator     *validator.Validate
	logger        zerolog.Logger
	now           func() time.Time
}

// NewPromotionResponseService constructs the response service. Notifications,
// activity recording and the cache are optional.
func NewPromotionResponseService(promotions repository.PromotionRepository, notifications NotificationService, activity ActivityRecorder, cache *redis.Client, policy PromotionResponsePolicy, validate *validator.Validate, logger zerolog.Logger) PromotionResponseService {
	return &promotionResponseService{
		promotions:    promotions,
		notifications: notifications,
		activity:      activity,
		cache:         cache,
		policy:        policy,
		validator:     validate,
		logger:        logger.With().Str("component", "promotion_response_service").Logger(),
		now:           time.Now,
	}
}

// Respond runs the full answer flow: role check, response normalization,
// record lookup, ownership check, then the atomic apply. The repository guard
// surfaces a concurrent double-answer as ErrPromotionAnswered.
func (s *promotionResponseService) Respond(ctx context.Context, parentID uint, role string, payload dto.PromotionRespondRequest) (dto.PromotionRespondResult, error) {
	ctx, span := otel.Tracer("smartedu/promotions").Start(ctx, "promotion.respond")
	defer span.End()

	if role != models.RoleParent {
		return dto.PromotionRespondResult{}, ErrUnauthorized
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.PromotionRespondResult{}, err
	}

	response, err := normalizeResponse(payload.Response)
	if err != nil {
		return dto.PromotionRespondResult{}, err
	}

	promotion, err := s.promotions.GetByID(ctx, payload.PromotionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PromotionRespondResult{}, ErrPromotionNotFound
		}
		return dto.PromotionRespondResult{}, err
	}

	if promotion.ParentID == nil || *promotion.ParentID != parentID {
		return dto.PromotionRespondResult{}, ErrNotPromotionOwner
	}
	if promotion.IsAnswered() {
		return dto.PromotionRespondResult{}, repository.ErrPromotionAnswered
	}

	span.SetAttributes(
		attribute.Int("promotion.id", int(promotion.ID)),
		attribute.String("promotion.response", response),
		attribute.Bool("promotion.final_level", promotion.IsFinalLevel()),
	)

	update, result := s.buildUpdate(promotion, response)

	if err := s.promotions.Respond(ctx, promotion.ID, update); err != nil {
		return dto.PromotionRespondResult{}, err
	}

	observability.PromotionResponses().WithLabelValues(update.Status).Inc()
	InvalidatePromotionStats(ctx, s.cache, promotion.AcademicYearID)

	s.logger.Info().
		Uint("promotion_id", promotion.ID).
		Uint("student_id", promotion.StudentID).
		Str("response", response).
		Str("status", update.Status).
		Msg("promotion answered")

	s.notifyStudent(ctx, promotion, response, result)
	s.recordActivity(ctx, parentID, promotion, response)

	return result, nil
}

// buildUpdate derives the atomic record changes and the caller-facing result
// from the stored record and the normalized answer. The summary message names
// the student so the decision screen can show it verbatim.
func (s *promotionResponseService) buildUpdate(promotion models.StudentPromotion, response string) (repository.PromotionRespond, dto.PromotionRespondResult) {
	now := s.now().UTC()
	update := repository.PromotionRespond{
		Response:    response,
		RespondedAt: now,
	}

	student := strings.TrimSpace(promotion.Student.Name)
	if student == "" {
		student = "The student"
	}

	if response == models.PromotionResponseNo {
		update.Status = models.PromotionStatusRejected
		return update, dto.PromotionRespondResult{
			Success:    true,
			IsApproved: false,
			Promoted:   false,
			Message:    fmt.Sprintf("Promotion declined; %s keeps the current level.", student),
		}
	}

	if promotion.IsFinalLevel() {
		update.Status = models.PromotionStatusApproved
		if s.policy.CompleteFinalLevel {
			update.Status = models.PromotionStatusCompleted
			promotedAt := now
			update.PromotedAt = &promotedAt
		}

		return update, dto.PromotionRespondResult{
			Success:    true,
			IsApproved: true,
			Promoted:   false,
			Message:    fmt.Sprintf("Promotion approved. %s has finished the stage.", student),
		}
	}

	update.Status = models.PromotionStatusApproved
	update.PromoteToLevel = promotion.ToLevelID
	promotedAt := now
	update.PromotedAt = &promotedAt

	destination := "the next level"
	if promotion.ToLevel != nil && strings.TrimSpace(promotion.ToLevel.Name) != "" {
		destination = promotion.ToLevel.Name
	}

	return update, dto.PromotionRespondResult{
		Success:    true,
		IsApproved: true,
		Promoted:   true,
		Message:    fmt.Sprintf("Promotion approved and %s has been moved to %s.", student, destination),
	}
}

func normalizeResponse(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case models.PromotionResponseYes:
		return models.PromotionResponseYes, nil
	case models.PromotionResponseNo:
		return models.PromotionResponseNo, nil
	default:
		return "", ErrInvalidResponse
	}
}

func (s *promotionResponseService) notifyStudent(ctx context.Context, promotion models.StudentPromotion, response string, result dto.PromotionRespondResult) {
	if s.notifications == nil || promotion.Student.UserID == 0 {
		return
	}

	notificationType := models.NotificationTypePromotion
	message := result.Message
	if response == models.PromotionResponseNo {
		notificationType = models.NotificationTypeEncouragement
		message = "Keep going! Your family decided you will repeat the level to build a stronger base."
	}

	_, err := s.notifications.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  promotion.Student.UserID,
		Title:   "Promotion update",
		Type:    notificationType,
		Message: message,
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("promotion_id", promotion.ID).Msg("failed to notify student")
	}
}

func (s *promotionResponseService) recordActivity(ctx context.Context, parentID uint, promotion models.StudentPromotion, response string) {
	if s.activity == nil {
		return
	}

	entityID := promotion.ID
	err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    parentID,
		ActorRole:  models.RoleParent,
		Action:     "promotion_responded",
		EntityType: "student_promotion",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"student_id": promotion.StudentID,
			"response":   response,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("promotion_id", promotion.ID).Msg("failed to record activity")
	}
}
