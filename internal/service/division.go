package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
)

// Age 按整 365 天计算周岁，birth 为空返回 nil。
// 以 now 所在时区的日历日与出生日相减，不受时分和时区偏移影响
func Age(birth *datatypes.Date, now time.Time) *int {
	if birth == nil {
		return nil
	}
	days := int(calendarDay(now).Sub(calendarDay(time.Time(*birth))).Hours() / 24)
	age := days / 365
	return &age
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// initial 首字符（按 rune）大写
func initial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r))
}

// Division 由性别与出生日期推导分组，如 M3039；任一缺失返回 nil
func Division(sex *string, birth *datatypes.Date, now time.Time) *string {
	if sex == nil || birth == nil {
		return nil
	}
	s := strings.TrimSpace(*sex)
	if s == "" {
		return nil
	}
	age := *Age(birth, now)
	var suffix string
	switch {
	case age < 20:
		suffix = "2029"
	case age < 30:
		suffix = "3039"
	case age < 40:
		suffix = "4049"
	case age < 50:
		suffix = "5059"
	default:
		suffix = "60+"
	}
	div := initial(s) + suffix
	return &div
}

// normalizeSex 取首字母大写，空值返回 nil
func normalizeSex(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	v = initial(v)
	return &v
}
