package database

import (
	"context"

	"github.com/thereayou/link/internal/models"
)

func (d *Database) SaveMessage(ctx context.Context, message *models.ChatMessage) error {
	return d.db.WithContext(ctx).Create(message).Error
}

// ListGroupMessages получает сообщения группы с пагинацией, новые первыми
func (d *Database) ListGroupMessages(ctx context.Context, groupID uint, limit, offset int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage

	query := d.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("sent_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkGroupMessagesRead одним запросом помечает все сообщения группы прочитанными.
func (d *Database) MarkGroupMessagesRead(ctx context.Context, groupID uint) (int64, error) {
	res := d.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("group_id = ? AND is_read = ?", groupID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (d *Database) CountUnread(ctx context.Context, groupID, excludeUserID uint) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("group_id = ? AND is_read = ? AND user_id <> ?", groupID, false, excludeUserID).
		Count(&n).Error
	return n, err
}
