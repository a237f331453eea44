package model

// Hostel 宿舍表 — 对应 hostels
type Hostel struct {
	HostelID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"hostel_id"`
	Name       string `gorm:"type:varchar(100);not null" json:"name"`
	Address    string `gorm:"type:varchar(255)" json:"address,omitempty"`
	OwnerName  string `gorm:"type:varchar(100)" json:"owner_name,omitempty"`
	OwnerEmail string `gorm:"type:varchar(255)" json:"owner_email,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Hostel) TableName() string { return "hostels" }
