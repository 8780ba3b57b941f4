package model

import "gorm.io/gorm"

// 偏好类型：avoid_* 为硬约束，preferred_* 为加分项
const (
	PreferenceShift      = "preferred_shift"
	PreferenceAvoidShift = "avoid_shift"
	PreferenceDays       = "preferred_days"
	PreferenceAvoidDays  = "avoid_days"
)

// EmployeePreference 员工排班偏好表，对应 employee_preferences
type EmployeePreference struct {
	PreferenceID    string  `gorm:"type:uuid;primaryKey"      json:"preference_id"`
	EmployeeID      string  `gorm:"type:uuid;not null;index"  json:"employee_id"`
	ShiftTemplateID *string `gorm:"type:uuid"                 json:"shift_template_id,omitempty"`
	PreferenceType  string  `gorm:"type:varchar(20);not null" json:"preference_type"`
	DayOfWeek       *int    `gorm:"type:smallint"             json:"day_of_week,omitempty"` // 0=周一 … 6=周日
	IsActive        bool    `gorm:"not null"                  json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (EmployeePreference) TableName() string { return "employee_preferences" }

func (p *EmployeePreference) BeforeCreate(*gorm.DB) error {
	newID(&p.PreferenceID)
	return nil
}
