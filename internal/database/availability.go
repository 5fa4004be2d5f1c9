package database

import (
	"context"
	"time"

	"github.com/thereayou/link/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplaceAvailability делает upsert по уникальному индексу (user_id, date).
func (d *Database) ReplaceAvailability(ctx context.Context, a *models.Availability) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"timeslots", "updated_at"}),
		}).Create(a).Error
		if err != nil {
			return err
		}
		// при конфликте postgres не возвращает id существующей строки через Create
		return tx.Model(&models.Availability{}).
			Select("id").
			Where("user_id = ? AND date = ?", a.UserID, a.Date).
			Scan(&a.ID).Error
	})
}

func (d *Database) ListUserAvailability(ctx context.Context, userID uint) ([]models.Availability, error) {
	var records []models.Availability
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").
		Find(&records).Error
	return records, err
}

func (d *Database) ListAvailabilityOn(ctx context.Context, date time.Time) ([]models.Availability, error) {
	var records []models.Availability
	err := d.db.WithContext(ctx).
		Where("date = ?", date).
		Order("id ASC").
		Find(&records).Error
	return records, err
}
