package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/models"
)

// MessageRepository handles persistence for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	History(ctx context.Context, threadID string, participantID uint, before *time.Time, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// History returns thread messages visible to the participant. Threads are
// private; a caller who is neither sender nor receiver sees nothing.
func (r *messageRepository) History(ctx context.Context, threadID string, participantID uint, before *time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Where("sender_id = ? OR receiver_id = ?", participantID, participantID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// History reads newest-first for pagination; callers render oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
