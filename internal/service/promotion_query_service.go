package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
)

// ErrAcademicYearNotFound is returned when a stats query names an unknown year.
var ErrAcademicYearNotFound = errors.New("academic year not found")

// PromotionQueryService serves the read side of the promotion workflow: the
// parent's pending list and the director's per-year statistics.
type PromotionQueryService interface {
	ListPendingForParent(ctx context.Context, parentID uint, role string) ([]dto.PendingPromotionResponse, error)
	YearStats(ctx context.Context, yearID uint) (dto.PromotionYearStats, error)
}

type promotionQueryService struct {
	promotions repository.PromotionRepository
	academic   repository.AcademicRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewPromotionQueryService constructs the query service. The redis client is
// optional; without it every stats request hits the database.
func NewPromotionQueryService(promotions repository.PromotionRepository, academic repository.AcademicRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) PromotionQueryService {
	return &promotionQueryService{
		promotions: promotions,
		academic:   academic,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.With().Str("component", "promotion_query_service").Logger(),
	}
}

// ListPendingForParent returns the caller's unanswered promotions, oldest
// first. Non-parent roles get an empty list rather than an error so the
// gate check is a no-op for staff accounts.
func (s *promotionQueryService) ListPendingForParent(ctx context.Context, parentID uint, role string) ([]dto.PendingPromotionResponse, error) {
	if role != models.RoleParent {
		return []dto.PendingPromotionResponse{}, nil
	}

	promotions, err := s.promotions.ListPendingByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}

	return dto.NewPendingPromotionResponseSlice(promotions), nil
}

// YearStats aggregates counts, the full record list and the skipped-students
// report for one academic year.
func (s *promotionQueryService) YearStats(ctx context.Context, yearID uint) (dto.PromotionYearStats, error) {
	if cached, ok := s.cachedStats(ctx, yearID); ok {
		return cached, nil
	}

	if _, err := s.academic.GetYear(ctx, yearID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PromotionYearStats{}, ErrAcademicYearNotFound
		}
		return dto.PromotionYearStats{}, err
	}

	counts, err := s.promotions.CountsByYear(ctx, yearID)
	if err != nil {
		return dto.PromotionYearStats{}, err
	}

	promotions, err := s.promotions.ListByYear(ctx, yearID)
	if err != nil {
		return dto.PromotionYearStats{}, err
	}

	skipped, err := s.promotions.ListSkippedStudents(ctx, yearID)
	if err != nil {
		return dto.PromotionYearStats{}, err
	}

	stats := buildPromotionStats(counts)

	details := make([]dto.PromotionDetail, 0, len(promotions))
	for _, promotion := range promotions {
		details = append(details, dto.NewPromotionDetail(promotion))
	}

	skippedStudents := make([]dto.SkippedStudent, 0, len(skipped))
	for _, student := range skipped {
		skippedStudents = append(skippedStudents, dto.NewSkippedStudent(student))
	}

	result := dto.PromotionYearStats{
		Stats:           stats,
		Promotions:      details,
		SkippedStudents: skippedStudents,
	}

	s.storeStats(ctx, yearID, result)

	return result, nil
}

// buildPromotionStats folds the grouped status counts into the dashboard
// figures. The response rate counts every answered record, including the ones
// already moved to completed.
func buildPromotionStats(counts map[string]int64) dto.PromotionStats {
	stats := dto.PromotionStats{
		Pending:   counts[models.PromotionStatusPending],
		Approved:  counts[models.PromotionStatusApproved],
		Rejected:  counts[models.PromotionStatusRejected],
		Completed: counts[models.PromotionStatusCompleted],
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected + stats.Completed

	if stats.Total > 0 {
		answered := stats.Approved + stats.Rejected + stats.Completed
		stats.ResponseRate = int(math.Round(float64(answered) / float64(stats.Total) * 100))
	}

	return stats
}

func statsCacheKey(yearID uint) string {
	return "smartedu:promotions:stats:" + strconv.FormatUint(uint64(yearID), 10)
}

func (s *promotionQueryService) cachedStats(ctx context.Context, yearID uint) (dto.PromotionYearStats, bool) {
	if s.cache == nil {
		return dto.PromotionYearStats{}, false
	}

	raw, err := s.cache.Get(ctx, statsCacheKey(yearID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Uint("year_id", yearID).Msg("stats cache read failed")
		}
		return dto.PromotionYearStats{}, false
	}

	var stats dto.PromotionYearStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn().Err(err).Uint("year_id", yearID).Msg("stats cache entry corrupt")
		return dto.PromotionYearStats{}, false
	}

	return stats, true
}

func (s *promotionQueryService) storeStats(ctx context.Context, yearID uint, stats dto.PromotionYearStats) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, statsCacheKey(yearID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("year_id", yearID).Msg("stats cache write failed")
	}
}

// InvalidatePromotionStats drops the cached stats entry for a year. Called by
// the write side after a parent answers or a rollover runs.
func InvalidatePromotionStats(ctx context.Context, cache *redis.Client, yearID uint) {
	if cache == nil {
		return
	}
	_ = cache.Del(ctx, statsCacheKey(yearID)).Err()
}
