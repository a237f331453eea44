package model

// MenuEntry 周菜单条目 — 对应 menu_entries
// 菜单内容的维护不在本服务范围内；仅在选餐时用于校验 (day_of_week, meal_type) 组合存在
type MenuEntry struct {
	MenuEntryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"menu_entry_id"`
	HostelID    string `gorm:"type:uuid;not null;uniqueIndex:uniq_menu_slot,priority:1" json:"hostel_id"`
	DayOfWeek   string `gorm:"type:varchar(10);not null;uniqueIndex:uniq_menu_slot,priority:2" json:"day_of_week"`
	MealType    string `gorm:"type:varchar(10);not null;uniqueIndex:uniq_menu_slot,priority:3" json:"meal_type"`
	Items       string `gorm:"type:text;not null;default:''" json:"items"`
	BaseModel
}

// TableName 指定表名
func (MenuEntry) TableName() string { return "menu_entries" }
