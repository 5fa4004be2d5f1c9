package database

import (
	"context"

	"github.com/thereayou/link/internal/models"
)

func (d *Database) SaveVote(ctx context.Context, vote *models.EventVote) error {
	return d.db.WithContext(ctx).Create(vote).Error
}

func (d *Database) ListVotes(ctx context.Context, groupID, eventID uint) ([]models.EventVote, error) {
	var votes []models.EventVote
	err := d.db.WithContext(ctx).
		Where("group_id = ? AND event_id = ?", groupID, eventID).
		Order("voted_at ASC").
		Order("id ASC").
		Find(&votes).Error
	return votes, err
}
