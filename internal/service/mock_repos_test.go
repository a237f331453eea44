package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"save-serve/backend/config"
	"save-serve/backend/internal/model"
	"save-serve/backend/internal/repository"
)

// ── 内存版 Repository 模拟 ──
//
// 模拟实现保持与 SQL 实现相同的并发纪律：条件更新在互斥锁内
// 原子完成，以"命中行数"表达抢占结果

func recordKey(studentID, date string) string { return studentID + "|" + date }

type mockParticipationRepo struct {
	mu      sync.Mutex
	records map[string]*model.ParticipationRecord
}

func newMockParticipationRepo() *mockParticipationRepo {
	return &mockParticipationRepo{records: make(map[string]*model.ParticipationRecord)}
}

func (m *mockParticipationRepo) EnsureRecord(_ context.Context, rec *model.ParticipationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(rec.StudentID, rec.Date)
	if _, ok := m.records[key]; ok {
		return nil
	}
	cp := *rec
	if cp.RecordID == "" {
		cp.RecordID = uuid.NewString()
	}
	m.records[key] = &cp
	return nil
}

func (m *mockParticipationRepo) SelectSlot(_ context.Context, studentID, date string, meal model.MealType, token string, submittedAt, deadline time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(studentID, date)]
	if !ok {
		return 0, nil
	}
	slot := rec.Slot(meal)
	if slot.Selected {
		return 0, nil
	}
	slot.Selected = true
	slot.Token = &token
	sub := submittedAt
	slot.SubmittedAt = &sub
	if rec.ExpiresAt == nil || deadline.After(*rec.ExpiresAt) {
		d := deadline
		rec.ExpiresAt = &d
	}
	return 1, nil
}

func (m *mockParticipationRepo) RedeemByToken(_ context.Context, meal model.MealType, token string, usedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		slot := rec.Slot(meal)
		if slot.Token == nil || *slot.Token != token {
			continue
		}
		if slot.Used {
			return 0, nil
		}
		slot.Used = true
		at := usedAt
		slot.UsedAt = &at
		return 1, nil
	}
	return 0, nil
}

func (m *mockParticipationRepo) SetManualConsumed(_ context.Context, studentID, date string, meal model.MealType, consumed bool, markedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(studentID, date)]
	if !ok {
		return 0, nil
	}
	slot := rec.Slot(meal)
	slot.ManualConsumed = consumed
	if consumed {
		at := markedAt
		slot.ManualMarkedAt = &at
	} else {
		slot.ManualMarkedAt = nil
	}
	return 1, nil
}

func (m *mockParticipationRepo) FindByToken(_ context.Context, token string) (*model.ParticipationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if _, ok := rec.MatchSlot(token); ok {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockParticipationRepo) GetByStudentAndDate(_ context.Context, studentID, date string) (*model.ParticipationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(studentID, date)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockParticipationRepo) ListByHostelAndDate(_ context.Context, hostelID, date string) ([]model.ParticipationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ParticipationRecord
	for _, rec := range m.records {
		if rec.HostelID == hostelID && rec.Date == date {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockParticipationRepo) ListByStudentBetween(_ context.Context, studentID, fromDate, toDate string) ([]model.ParticipationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ParticipationRecord
	for _, rec := range m.records {
		if rec.StudentID == studentID && rec.Date >= fromDate && rec.Date <= toDate {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockParticipationRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for key, rec := range m.records {
		if rec.ExpiresAt != nil && rec.ExpiresAt.Before(before) {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// get 测试内直查底层记录（绕过服务层）
func (m *mockParticipationRepo) get(studentID, date string) *model.ParticipationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(studentID, date)]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

type mockStudentRepo struct {
	students map[string]*model.Student
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockStudentRepo) ListByHostel(_ context.Context, hostelID string) ([]model.Student, error) {
	var out []model.Student
	for _, s := range m.students {
		if s.HostelID == hostelID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type mockHostelRepo struct {
	hostels map[string]*model.Hostel
}

func (m *mockHostelRepo) GetByID(_ context.Context, id string) (*model.Hostel, error) {
	h, ok := m.hostels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *h
	return &cp, nil
}

type mockMenuRepo struct {
	entries map[string]bool // hostelID|dayOfWeek|mealType
	items   []model.MenuEntry
}

func menuKey(hostelID, dayOfWeek string, meal model.MealType) string {
	return hostelID + "|" + dayOfWeek + "|" + string(meal)
}

func (m *mockMenuRepo) Exists(_ context.Context, hostelID, dayOfWeek string, meal model.MealType) (bool, error) {
	return m.entries[menuKey(hostelID, dayOfWeek, meal)], nil
}

func (m *mockMenuRepo) ListByHostel(_ context.Context, hostelID string) ([]model.MenuEntry, error) {
	var out []model.MenuEntry
	for _, e := range m.items {
		if e.HostelID == hostelID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ── 测试环境装配 ──

const (
	testHostelID  = "9a4f3d1e-0000-4000-8000-000000000001"
	testHostelID2 = "9a4f3d1e-0000-4000-8000-000000000002"
	testStudentID = "5c2b7a90-0000-4000-8000-000000000101"
	testStudent2  = "5c2b7a90-0000-4000-8000-000000000102"
	testOutsider  = "5c2b7a90-0000-4000-8000-000000000201"
)

type testEnv struct {
	svc     ParticipationService
	cfg     *config.Config
	partial *mockParticipationRepo
	menu    *mockMenuRepo
}

func newTestEnv() *testEnv {
	cfg := &config.Config{
		Meals: config.MealsConfig{
			Timezone:          "Asia/Kolkata",
			BreakfastDeadline: "10:00",
			LunchDeadline:     "15:00",
			DinnerDeadline:    "22:00",
		},
		Retention: config.RetentionConfig{
			SweepInterval: time.Hour,
			Grace:         24 * time.Hour,
		},
	}

	part := newMockParticipationRepo()
	menu := &mockMenuRepo{entries: make(map[string]bool)}
	repo := &repository.Repository{
		Participation: part,
		Student: &mockStudentRepo{students: map[string]*model.Student{
			testStudentID: {StudentID: testStudentID, Name: "张伟", Email: "zhangwei@example.com", HostelID: testHostelID},
			testStudent2:  {StudentID: testStudent2, Name: "李娜", Email: "lina@example.com", HostelID: testHostelID},
			testOutsider:  {StudentID: testOutsider, Name: "王芳", Email: "wangfang@example.com", HostelID: testHostelID2},
		}},
		Hostel: &mockHostelRepo{hostels: map[string]*model.Hostel{
			testHostelID:  {HostelID: testHostelID, Name: "Sunrise Hostel"},
			testHostelID2: {HostelID: testHostelID2, Name: "Lakeside Hostel"},
		}},
		Menu: menu,
	}

	return &testEnv{
		svc:     NewParticipationService(cfg, repo, nil, zap.NewNop()),
		cfg:     cfg,
		partial: part,
		menu:    menu,
	}
}

// dateAfter 以配置时区取 now+days 的日期自然键与星期标签
func dateAfter(days int) (string, string) {
	loc, _ := time.LoadLocation("Asia/Kolkata")
	d := time.Now().In(loc).AddDate(0, 0, days)
	return d.Format(model.DateLayout), d.Weekday().String()
}
