package repository

import (
	"context"

	"gorm.io/gorm"

	"save-serve/backend/internal/model"
)

// MenuRepository 菜单目录数据访问接口（只读消费）
type MenuRepository interface {
	// Exists 判断 (hostel, day_of_week, meal_type) 菜单条目是否存在
	Exists(ctx context.Context, hostelID, dayOfWeek string, meal model.MealType) (bool, error)
	ListByHostel(ctx context.Context, hostelID string) ([]model.MenuEntry, error)
}

// menuRepo MenuRepository 的 GORM 实现
type menuRepo struct {
	db *gorm.DB
}

// NewMenuRepo 创建 MenuRepository 实例
func NewMenuRepo(db *gorm.DB) MenuRepository {
	return &menuRepo{db: db}
}

func (r *menuRepo) Exists(ctx context.Context, hostelID, dayOfWeek string, meal model.MealType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MenuEntry{}).
		Where("hostel_id = ? AND day_of_week = ? AND meal_type = ?", hostelID, dayOfWeek, string(meal)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *menuRepo) ListByHostel(ctx context.Context, hostelID string) ([]model.MenuEntry, error) {
	var entries []model.MenuEntry
	err := r.db.WithContext(ctx).
		Where("hostel_id = ?", hostelID).
		Order("day_of_week ASC, meal_type ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
