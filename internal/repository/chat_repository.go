package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

// ChatRepository caches chat summaries in the local database so the
// last-known list survives restarts and API outages.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// ReplaceAll swaps the cached list for the given snapshot in one
// transaction. Rows missing from the snapshot are removed.
func (r *ChatRepository) ReplaceAll(ctx context.Context, chats []*domain.Chat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(chats))
		for _, chat := range chats {
			ids = append(ids, chat.ID)
		}

		if len(ids) == 0 {
			return tx.Where("1 = 1").Delete(&ChatModel{}).Error
		}
		if err := tx.Where("id NOT IN ?", ids).Delete(&ChatModel{}).Error; err != nil {
			return err
		}

		for _, chat := range chats {
			model := ChatDomainToModel(chat)
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

func (r *ChatRepository) GetAll(ctx context.Context) ([]*domain.Chat, error) {
	var models []ChatModel
	err := r.db.WithContext(ctx).
		Order("last_message_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	chats := make([]*domain.Chat, 0, len(models))
	for i := range models {
		chats = append(chats, ChatModelToDomain(&models[i]))
	}
	return chats, nil
}

func (r *ChatRepository) SetUnread(ctx context.Context, chatID string, count int) error {
	return r.db.WithContext(ctx).
		Model(&ChatModel{}).
		Where("id = ?", chatID).
		Update("unread_count", count).Error
}

func (r *ChatRepository) IncrementUnread(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).
		Model(&ChatModel{}).
		Where("id = ?", chatID).
		Update("unread_count", gorm.Expr("unread_count + 1")).Error
}

func (r *ChatRepository) Delete(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", chatID).
		Delete(&ChatModel{}).Error
}
