package database

import (
	"context"

	"github.com/thereayou/link/internal/models"
)

func (d *Database) CreateEvent(ctx context.Context, event *models.Event) error {
	return d.db.WithContext(ctx).Create(event).Error
}

func (d *Database) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := d.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (d *Database) ListEvents(ctx context.Context, eventType models.EventType) ([]models.Event, error) {
	var events []models.Event

	query := d.db.WithContext(ctx).Order("id ASC")
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	err := query.Find(&events).Error
	return events, err
}

func (d *Database) UpdateEvent(ctx context.Context, event *models.Event) error {
	return d.db.WithContext(ctx).Save(event).Error
}
