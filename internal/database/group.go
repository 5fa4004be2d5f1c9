package database

import (
	"context"
	"time"

	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateGroup создает группу и членство администратора в одной транзакции.
func (d *Database) CreateGroup(ctx context.Context, group *models.Group, admin *models.GroupMember) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group.MemberCount = 1
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		admin.GroupID = group.ID
		return tx.Create(admin).Error
	})
}

func (d *Database) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := d.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

// AddMember блокирует строку группы до конца транзакции, поэтому параллельные
// добавления одного пользователя проверяют активное членство по очереди.
func (d *Database) AddMember(ctx context.Context, member *models.GroupMember) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := forUpdate(tx).First(&group, member.GroupID).Error; err != nil {
			return notFound(err)
		}

		var active int64
		err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ? AND is_active = ?", member.GroupID, member.UserID, true).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return services.Invalid("user_id", "is already an active member")
		}

		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Model(&models.Group{}).
			Where("id = ?", member.GroupID).
			Update("member_count", gorm.Expr("member_count + ?", 1)).Error
	})
}

func (d *Database) DeactivateMember(ctx context.Context, groupID, userID uint, at time.Time) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := forUpdate(tx).First(&group, groupID).Error; err != nil {
			return notFound(err)
		}
		res := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
			Updates(map[string]interface{}{"is_active": false, "left_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return services.ErrNotFound
		}
		return tx.Model(&models.Group{}).
			Where("id = ? AND member_count > 0", groupID).
			Update("member_count", gorm.Expr("member_count - ?", 1)).Error
	})
}

// forUpdate добавляет SELECT ... FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (d *Database) GetActiveMembership(ctx context.Context, groupID, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	err := d.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		First(&member).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &member, nil
}

func (d *Database) ListActiveMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := d.db.WithContext(ctx).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Order("id ASC").
		Find(&members).Error
	return members, err
}

func (d *Database) ListUserGroups(ctx context.Context, userID uint) ([]models.Group, error) {
	var groups []models.Group
	err := d.db.WithContext(ctx).
		Joins("JOIN group_members gm ON gm.group_id = groups.id").
		Where("gm.user_id = ? AND gm.is_active = ?", userID, true).
		Order("groups.id ASC").
		Find(&groups).Error
	return groups, err
}
