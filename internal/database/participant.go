package database

import (
	"context"
	"errors"
	"time"

	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
	"gorm.io/gorm"
)

func (d *Database) CreateParticipant(ctx context.Context, participant *models.EventParticipant) error {
	err := d.db.WithContext(ctx).Create(participant).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.Invalid("event_id", "user has already responded to this event")
	}
	return err
}

func (d *Database) GetParticipant(ctx context.Context, id uint) (*models.EventParticipant, error) {
	var participant models.EventParticipant
	if err := d.db.WithContext(ctx).First(&participant, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &participant, nil
}

func (d *Database) ListParticipants(ctx context.Context, eventID uint) ([]models.EventParticipant, error) {
	var participants []models.EventParticipant
	err := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&participants).Error
	return participants, err
}

func (d *Database) ListUserParticipations(ctx context.Context, userID uint) ([]models.EventParticipant, error) {
	var participants []models.EventParticipant
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&participants).Error
	return participants, err
}

func (d *Database) UpdateParticipantStatus(ctx context.Context, id uint, status models.ParticipantStatus, at time.Time) (*models.EventParticipant, error) {
	res := d.db.WithContext(ctx).
		Model(&models.EventParticipant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "response_date": at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, services.ErrNotFound
	}
	return d.GetParticipant(ctx, id)
}
