package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

// MessageRepository caches message history per chat. Pushed messages are
// inserted with DO NOTHING so a replayed push never clobbers a row that a
// later history fetch already refreshed.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) CreateOrIgnore(ctx context.Context, msg *domain.Message) error {
	model := MessageDomainToModel(msg)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(model).Error
}

// ReplaceHistory swaps the cached history of one chat for a freshly
// fetched page.
func (r *MessageRepository) ReplaceHistory(ctx context.Context, chatID string, msgs []*domain.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&MessageModel{}).Error; err != nil {
			return err
		}
		for _, msg := range msgs {
			model := MessageDomainToModel(msg)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByChat returns the newest messages of a chat in chronological order.
// A limit of 0 means no limit.
func (r *MessageRepository) GetByChat(ctx context.Context, chatID string, limit int) ([]*domain.Message, error) {
	var models []MessageModel
	query := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("message_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	msgs := make([]*domain.Message, len(models))
	for i := range models {
		msgs[len(models)-1-i] = MessageModelToDomain(&models[i])
	}
	return msgs, nil
}

func (r *MessageRepository) Delete(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", messageID).
		Delete(&MessageModel{}).Error
}

func (r *MessageRepository) DeleteByChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&MessageModel{}).Error
}
