package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ShiftTemplate 班次模板表，对应 shift_templates（主数据，引擎只读）
type ShiftTemplate struct {
	ShiftTemplateID        string      `gorm:"type:uuid;primaryKey"          json:"shift_template_id"`
	DepartmentID           string      `gorm:"type:uuid;not null;index"      json:"department_id"`
	Name                   string      `gorm:"type:varchar(100);not null"    json:"name"`
	DayOfWeek              int         `gorm:"type:smallint;not null"        json:"day_of_week"` // 0=周一 … 6=周日
	StartTime              string      `gorm:"type:varchar(5);not null"      json:"start_time"`  // HH:MM
	EndTime                string      `gorm:"type:varchar(5);not null"      json:"end_time"`    // HH:MM，不晚于开始时间表示跨天
	DurationHours          float64     `gorm:"type:numeric(5,2);not null"    json:"duration_hours"`
	RequiredEmployees      int         `gorm:"not null"                      json:"required_employees"`
	AllowedEmploymentTypes StringArray `gorm:"type:text"                     json:"allowed_employment_types,omitempty"` // 空表示不限
	IsActive               bool        `gorm:"not null"                      json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (ShiftTemplate) TableName() string { return "shift_templates" }

func (s *ShiftTemplate) BeforeCreate(*gorm.DB) error {
	newID(&s.ShiftTemplateID)
	return nil
}

// Weekday 将 0=周一 的约定转换为 time.Weekday
func (s *ShiftTemplate) Weekday() time.Weekday {
	return time.Weekday((s.DayOfWeek + 1) % 7)
}

// Required 需求人数，未配置时按 1 人
func (s *ShiftTemplate) Required() int {
	if s.RequiredEmployees <= 0 {
		return 1
	}
	return s.RequiredEmployees
}

// Window 计算模板在指定日期的 [开始, 结束) 时刻
func (s *ShiftTemplate) Window(date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	startMin, err := ParseClock(s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("模板 %s 开始时间: %w", s.Name, err)
	}
	endMin, err := ParseClock(s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("模板 %s 结束时间: %w", s.Name, err)
	}
	// 按墙上时间构造，夏令时切换日不发生偏移
	y, m, d := date.Date()
	start := time.Date(y, m, d, startMin/60, startMin%60, 0, 0, loc)
	if endMin <= startMin {
		d++
	}
	end := time.Date(y, m, d, endMin/60, endMin%60, 0, 0, loc)
	return start, end, nil
}

// Hours 班次工时；模板未填写时按起止时间计算
func (s *ShiftTemplate) Hours() float64 {
	if s.DurationHours > 0 {
		return s.DurationHours
	}
	startMin, err1 := ParseClock(s.StartTime)
	endMin, err2 := ParseClock(s.EndTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	if endMin <= startMin {
		endMin += 24 * 60
	}
	return float64(endMin-startMin) / 60
}

// ParseClock 解析 HH:MM 或 HH:MM:SS，返回自零点起的分钟数
func ParseClock(s string) (int, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("无效的时间格式 %q", s)
}
