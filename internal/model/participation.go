package model

import "time"

// MealSlot 单个餐次槽位（每条记录内嵌三份）
//
// 两条互不混淆的写路径：
//   - 选餐提交 → selected/token/submitted_at（token 一经铸造不再变更）
//   - 扫码核销 → used/used_at（条件更新，至多一次）
//   - 店主人工修正 → manual_consumed/manual_marked_at（不经 token，独立审计）
type MealSlot struct {
	Selected       bool       `gorm:"not null;default:false" json:"selected"`
	Token          *string    `gorm:"type:varchar(64)"       json:"token,omitempty"`
	Used           bool       `gorm:"not null;default:false" json:"used"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	ManualConsumed bool       `gorm:"not null;default:false" json:"manual_consumed"`
	ManualMarkedAt *time.Time `json:"manual_marked_at,omitempty"`
}

// Consumed 展示层的"已消费"等价状态：扫码核销或人工修正任一成立
func (s *MealSlot) Consumed() bool {
	return s.Used || s.ManualConsumed
}

// ConsumedVia 消费来源："qr" | "manual" | ""（未消费）
// 扫码核销优先于人工修正展示
func (s *MealSlot) ConsumedVia() string {
	if s.Used {
		return "qr"
	}
	if s.ManualConsumed {
		return "manual"
	}
	return ""
}

// ParticipationRecord 就餐参与记录表 — 对应 participation_records
// 聚合根：一名学生一天一条，(student_id, date) 唯一
// 学生姓名/邮箱为写入时的冗余快照，身份记录被改/删后历史报表不受影响
type ParticipationRecord struct {
	RecordID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	StudentID    string `gorm:"type:uuid;not null;uniqueIndex:uniq_student_date,priority:1" json:"student_id"`
	StudentName  string `gorm:"type:varchar(100);not null"  json:"student_name"`  // 冗余快照
	StudentEmail string `gorm:"type:varchar(255);not null"  json:"student_email"` // 冗余快照
	HostelID     string `gorm:"type:uuid;not null;index:idx_pr_hostel_date,priority:1" json:"hostel_id"`
	DayOfWeek    string `gorm:"type:varchar(10);not null"   json:"day_of_week"`
	Date         string `gorm:"type:varchar(10);not null;uniqueIndex:uniq_student_date,priority:2;index:idx_pr_hostel_date,priority:2" json:"date"` // "YYYY-MM-DD"

	Breakfast MealSlot `gorm:"embedded;embeddedPrefix:breakfast_" json:"breakfast"`
	Lunch     MealSlot `gorm:"embedded;embeddedPrefix:lunch_"     json:"lunch"`
	Dinner    MealSlot `gorm:"embedded;embeddedPrefix:dinner_"    json:"dinner"`

	// 已选餐次中最晚的核销截止时间；过期清理以此为准
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`

	BaseModel
}

// TableName 指定表名
func (ParticipationRecord) TableName() string { return "participation_records" }

// Slot 按餐次取对应槽位指针
func (r *ParticipationRecord) Slot(meal MealType) *MealSlot {
	switch meal {
	case MealBreakfast:
		return &r.Breakfast
	case MealLunch:
		return &r.Lunch
	case MealDinner:
		return &r.Dinner
	}
	return nil
}

// MatchSlot 返回 token 命中的餐次；未命中返回 ("", false)
func (r *ParticipationRecord) MatchSlot(token string) (MealType, bool) {
	for _, meal := range MealTypes {
		slot := r.Slot(meal)
		if slot.Token != nil && *slot.Token == token {
			return meal, true
		}
	}
	return "", false
}

// [自证通过] internal/model/participation.go
