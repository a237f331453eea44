package repository

import (
	"context"

	"gorm.io/gorm"

	"save-serve/backend/internal/model"
)

// HostelRepository 宿舍数据访问接口（只读消费）
type HostelRepository interface {
	GetByID(ctx context.Context, id string) (*model.Hostel, error)
}

// hostelRepo HostelRepository 的 GORM 实现
type hostelRepo struct {
	db *gorm.DB
}

// NewHostelRepo 创建 HostelRepository 实例
func NewHostelRepo(db *gorm.DB) HostelRepository {
	return &hostelRepo{db: db}
}

func (r *hostelRepo) GetByID(ctx context.Context, id string) (*model.Hostel, error) {
	var hostel model.Hostel
	err := r.db.WithContext(ctx).
		Where("hostel_id = ?", id).
		First(&hostel).Error
	if err != nil {
		return nil, err
	}
	return &hostel, nil
}
