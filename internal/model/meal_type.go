package model

import "time"

// MealType 餐次类型
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// MealTypes 固定餐次顺序（早餐 → 午餐 → 晚餐），报表与导出按此排列
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

// ParseMealType 校验并归一化餐次类型
func ParseMealType(s string) (MealType, bool) {
	switch MealType(s) {
	case MealBreakfast, MealLunch, MealDinner:
		return MealType(s), true
	}
	return "", false
}

// DayLabels 合法的星期标签（与菜单目录的 day_of_week 对齐）
var DayLabels = map[string]time.Weekday{
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
	"Sunday":    time.Sunday,
}

// DateLayout 日期自然键的固定格式
const DateLayout = "2006-01-02"
