package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Participation ParticipationRepository
	Student       StudentRepository
	Hostel        HostelRepository
	Menu          MenuRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Participation: NewParticipationRepo(db),
		Student:       NewStudentRepo(db),
		Hostel:        NewHostelRepo(db),
		Menu:          NewMenuRepo(db),
	}
}

