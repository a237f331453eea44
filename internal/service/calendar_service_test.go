package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"save-serve/backend/internal/dto"
	"save-serve/backend/internal/model"
	"save-serve/backend/internal/repository"
)

func newCalendarEnv() (*testEnv, CalendarService) {
	env := newTestEnv()
	repo := &repository.Repository{Participation: env.partial}
	cal := NewCalendarService(env.svc, repo, "Asia/Kolkata", zap.NewNop())
	return env, cal
}

func TestBuildMyMealCalendar(t *testing.T) {
	env, cal := newCalendarEnv()
	date, day := dateAfter(1)

	sel, err := env.svc.SubmitSelection(context.Background(), &dto.SubmitSelectionRequest{
		Date: date, DayOfWeek: day, MealType: "lunch",
	}, testStudentID, testHostelID)
	if err != nil {
		t.Fatalf("选餐应成功，实际错误: %v", err)
	}

	from, _ := dateAfter(0)
	to, _ := dateAfter(7)
	ics, err := cal.BuildMyMealCalendar(context.Background(), testStudentID, from, to)
	if err != nil {
		t.Fatalf("生成日历应成功，实际错误: %v", err)
	}

	if !strings.Contains(ics, "BEGIN:VCALENDAR") || !strings.Contains(ics, "END:VCALENDAR") {
		t.Error("输出应为合法 iCalendar 内容")
	}
	if !strings.Contains(ics, "Lunch") {
		t.Error("已选餐次应出现在日历事件中")
	}
	if !strings.Contains(ics, testStudentID+"-"+date+"-"+string(model.MealLunch)+"@save-serve") {
		t.Error("事件 UID 应由 学生-日期-餐次 构成")
	}

	// 核销后事件描述切换为已消费
	if _, err := env.svc.Redeem(context.Background(), sel.Token); err != nil {
		t.Fatalf("核销应成功，实际错误: %v", err)
	}
	ics2, _ := cal.BuildMyMealCalendar(context.Background(), testStudentID, from, to)
	if !strings.Contains(ics2, "Consumed") {
		t.Error("已核销餐次的事件描述应为 Consumed")
	}
}

func TestBuildMyMealCalendar_RangeChecks(t *testing.T) {
	_, cal := newCalendarEnv()

	if _, err := cal.BuildMyMealCalendar(context.Background(), testStudentID, "2026-09-10", "2026-09-01"); !errors.Is(err, ErrCalendarRangeInvalid) {
		t.Errorf("倒置区间期望 ErrCalendarRangeInvalid，实际 %v", err)
	}
	if _, err := cal.BuildMyMealCalendar(context.Background(), testStudentID, "2026-01-01", "2026-12-31"); !errors.Is(err, ErrCalendarRangeTooBig) {
		t.Errorf("超大区间期望 ErrCalendarRangeTooBig，实际 %v", err)
	}
	if _, err := cal.BuildMyMealCalendar(context.Background(), testStudentID, "bad-date", "2026-09-01"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("非法日期期望 ErrInvalidDate，实际 %v", err)
	}
}
