package dto

// ── 就餐参与模块 DTO ──

// SubmitSelectionRequest 选餐提交请求
type SubmitSelectionRequest struct {
	Date      string `json:"date"        binding:"required"` // "2026-09-01"
	DayOfWeek string `json:"day_of_week" binding:"required"` // "Monday" ...
	MealType  string `json:"meal_type"   binding:"required"` // breakfast | lunch | dinner
}

// SubmitSelectionResponse 选餐成功响应
// token 即二维码载荷，单次有效
type SubmitSelectionResponse struct {
	Token       string `json:"token"`
	MealType    string `json:"meal_type"`
	Date        string `json:"date"`
	SubmittedAt string `json:"submitted_at"`
	Deadline    string `json:"deadline"` // 该餐次的核销截止时间
}

// RedeemRequest 扫码核销请求
type RedeemRequest struct {
	Token string `json:"token" binding:"required"`
}

// RedemptionResponse 核销成功响应
type RedemptionResponse struct {
	StudentName string `json:"student_name"`
	MealType    string `json:"meal_type"`
	UsedAt      string `json:"used_at"`
}

// TokenUsedData 重复核销冲突的审计上下文（409 响应的 data 字段）
type TokenUsedData struct {
	StudentName string `json:"student_name"`
	MealType    string `json:"meal_type"`
	UsedAt      string `json:"used_at"`
}

// MealSlotStatus 单餐次状态
type MealSlotStatus struct {
	Selected    bool    `json:"selected"`
	Consumed    bool    `json:"consumed"`
	ConsumedVia string  `json:"consumed_via,omitempty"` // "qr" | "manual"
	SubmittedAt *string `json:"submitted_at,omitempty"`
	UsedAt      *string `json:"used_at,omitempty"`
}

// StudentDayStatus 单个学生的当日三餐状态
// 无记录的学生以全 false 槽位呈现，保证报表能覆盖全名册
type StudentDayStatus struct {
	StudentID   string         `json:"student_id"`
	StudentName string         `json:"student_name"`
	Breakfast   MealSlotStatus `json:"breakfast"`
	Lunch       MealSlotStatus `json:"lunch"`
	Dinner      MealSlotStatus `json:"dinner"`
}

// DailyStatusResponse 宿舍当日状态明细
type DailyStatusResponse struct {
	HostelID string             `json:"hostel_id"`
	Date     string             `json:"date"`
	List     []StudentDayStatus `json:"list"`
}

// MealCounts 单餐次汇总
type MealCounts struct {
	OptedCount int `json:"opted_count"`
	UsedCount  int `json:"used_count"` // 含人工修正的"已消费"等价口径
}

// AggregateCountsResponse 宿舍当日三餐汇总
type AggregateCountsResponse struct {
	HostelID  string     `json:"hostel_id"`
	Date      string     `json:"date"`
	Breakfast MealCounts `json:"breakfast"`
	Lunch     MealCounts `json:"lunch"`
	Dinner    MealCounts `json:"dinner"`
}

// ConsumedUpdate 单条人工修正
type ConsumedUpdate struct {
	StudentID string `json:"student_id" binding:"required"`
	MealType  string `json:"meal_type"  binding:"required"`
	Consumed  bool   `json:"consumed"`
}

// BulkSetConsumedRequest 店主批量人工修正请求
type BulkSetConsumedRequest struct {
	Date    string           `json:"date"    binding:"required"`
	Updates []ConsumedUpdate `json:"updates" binding:"required,min=1,dive"`
}

// BulkSetConsumedResponse 批量修正确认
type BulkSetConsumedResponse struct {
	Updated int `json:"updated"`
}

// MyRecordResponse 学生查看自己当日记录
type MyRecordResponse struct {
	Date      string         `json:"date"`
	DayOfWeek string         `json:"day_of_week"`
	Breakfast MealSlotStatus `json:"breakfast"`
	Lunch     MealSlotStatus `json:"lunch"`
	Dinner    MealSlotStatus `json:"dinner"`
	Tokens    map[string]string `json:"tokens,omitempty"` // 餐次 → 未核销 token（供客户端重新渲染二维码）
}

// MenuEntryView 周菜单条目视图
type MenuEntryView struct {
	DayOfWeek string `json:"day_of_week"`
	MealType  string `json:"meal_type"`
	Items     string `json:"items"`
}

// WeeklyMenuResponse 宿舍周菜单只读视图
type WeeklyMenuResponse struct {
	HostelID   string          `json:"hostel_id"`
	HostelName string          `json:"hostel_name"`
	Entries    []MenuEntryView `json:"entries"`
}

// SweepResponse 过期记录清理结果
type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}

