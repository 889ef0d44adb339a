package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// ErrPromotionAnswered signals that the conditional update found the record
// already carrying a parent response. Guards against the two-sessions race
// where a stale answer would silently overwrite a fresh one.
var ErrPromotionAnswered = errors.New("promotion already answered")

// PromotionRespond describes the field changes applied as one atomic unit
// when a parent answers a promotion.
type PromotionRespond struct {
	Response    string
	RespondedAt time.Time
	Status      string
	// PromoteToLevel, when set, moves the student to the destination level and
	// marks the record completed within the same transaction.
	PromoteToLevel *uint
	PromotedAt     *time.Time
}

// PromotionRepository defines data operations for student promotions.
type PromotionRepository interface {
	Create(ctx context.Context, promotion *models.StudentPromotion) error
	GetByID(ctx context.Context, id uint) (models.StudentPromotion, error)
	ListPendingByParent(ctx context.Context, parentID uint) ([]models.StudentPromotion, error)
	ListByYear(ctx context.Context, yearID uint) ([]models.StudentPromotion, error)
	CountsByYear(ctx context.Context, yearID uint) (map[string]int64, error)
	ListSkippedStudents(ctx context.Context, yearID uint) ([]models.Student, error)
	ExistsForYear(ctx context.Context, studentID, yearID uint) (bool, error)
	Respond(ctx context.Context, id uint, update PromotionRespond) error
}

type promotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository instantiates the repository.
func NewPromotionRepository(db *gorm.DB) PromotionRepository {
	return &promotionRepository{db: db}
}

func (r *promotionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.StudentPromotion{}).
		Preload("Student").
		Preload("FromLevel").
		Preload("ToLevel")
}

func (r *promotionRepository) Create(ctx context.Context, promotion *models.StudentPromotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

func (r *promotionRepository) GetByID(ctx context.Context, id uint) (models.StudentPromotion, error) {
	var promotion models.StudentPromotion
	if err := r.baseQuery(ctx).First(&promotion, id).Error; err != nil {
		return models.StudentPromotion{}, err
	}

	return promotion, nil
}

func (r *promotionRepository) ListPendingByParent(ctx context.Context, parentID uint) ([]models.StudentPromotion, error) {
	var promotions []models.StudentPromotion
	if err := r.baseQuery(ctx).
		Where("parent_id = ?", parentID).
		Where("status = ?", models.PromotionStatusPending).
		Where("parent_response IS NULL").
		Order("created_at ASC, id ASC").
		Find(&promotions).Error; err != nil {
		return nil, err
	}

	return promotions, nil
}

func (r *promotionRepository) ListByYear(ctx context.Context, yearID uint) ([]models.StudentPromotion, error) {
	var promotions []models.StudentPromotion
	if err := r.baseQuery(ctx).
		Preload("Student.Parent").
		Where("academic_year_id = ?", yearID).
		Order("created_at ASC, id ASC").
		Find(&promotions).Error; err != nil {
		return nil, err
	}

	return promotions, nil
}

func (r *promotionRepository) CountsByYear(ctx context.Context, yearID uint) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.StudentPromotion{}).
		Select("status, count(*) as count").
		Where("academic_year_id = ?", yearID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

func (r *promotionRepository) ListSkippedStudents(ctx context.Context, yearID uint) ([]models.Student, error) {
	addressed := r.db.Model(&models.StudentPromotion{}).
		Select("student_id").
		Where("academic_year_id = ?", yearID)

	var students []models.Student
	if err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Preload("Level").
		Where("level_id IS NOT NULL").
		Where("id NOT IN (?)", addressed).
		Order("id ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *promotionRepository) ExistsForYear(ctx context.Context, studentID, yearID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.StudentPromotion{}).
		Where("student_id = ?", studentID).
		Where("academic_year_id = ?", yearID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// Respond applies a parent's answer. The UPDATE asserts parent_response IS
// NULL so concurrent sessions cannot double-apply; the level mutation and the
// completed transition share the transaction so the record can never commit
// half-updated.
func (r *promotionRepository) Respond(ctx context.Context, id uint, update PromotionRespond) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changes := map[string]interface{}{
			"parent_response": update.Response,
			"responded_at":    update.RespondedAt,
			"status":          update.Status,
		}
		if update.PromoteToLevel == nil && update.PromotedAt != nil {
			// End-of-stage completion policy: no level to move to, but the
			// record is marked done in the same write.
			changes["promoted_at"] = update.PromotedAt
		}

		result := tx.Model(&models.StudentPromotion{}).
			Where("id = ?", id).
			Where("parent_response IS NULL").
			Updates(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPromotionAnswered
		}

		if update.PromoteToLevel == nil {
			return nil
		}

		var promotion models.StudentPromotion
		if err := tx.First(&promotion, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Student{}).
			Where("id = ?", promotion.StudentID).
			Update("level_id", *update.PromoteToLevel).Error; err != nil {
			return err
		}

		return tx.Model(&models.StudentPromotion{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":      models.PromotionStatusCompleted,
				"promoted_at": update.PromotedAt,
			}).Error
	})
}
