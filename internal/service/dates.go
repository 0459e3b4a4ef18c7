package service

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// ParseDate 解析 YYYY-MM-DD，空串或格式错误返回 nil
func ParseDate(s string) *datatypes.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	d := datatypes.Date(t)
	return &d
}

// ParseDatePtr 同 ParseDate，nil 输入返回 nil
func ParseDatePtr(s *string) *datatypes.Date {
	if s == nil {
		return nil
	}
	return ParseDate(*s)
}

// FormatDate nil 返回 nil，便于 JSON 输出 null
func FormatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format(dateLayout)
	return &s
}
