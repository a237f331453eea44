package model

// Student 学生身份表 — 对应 students
// 身份记录由外部 CRUD 系统维护，本服务只读消费（解析/冗余快照）
type Student struct {
	StudentID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	Name       string `gorm:"type:varchar(100);not null" json:"name"`
	Email      string `gorm:"type:varchar(255);not null;unique" json:"email"`
	HostelID   string `gorm:"type:uuid;not null;index" json:"hostel_id"`
	RoomNumber string `gorm:"type:varchar(20)" json:"room_number,omitempty"`
	BaseModel

	// 关联
	Hostel *Hostel `gorm:"foreignKey:HostelID;references:HostelID" json:"hostel,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
