package model

import (
	"time"

	"gorm.io/gorm"
)

// TimeOffRequest 请假记录表，对应 time_off_requests
type TimeOffRequest struct {
	TimeOffID   string    `gorm:"type:uuid;primaryKey"     json:"time_off_id"`
	EmployeeID  string    `gorm:"type:uuid;not null;index" json:"employee_id"`
	StartDate   time.Time `gorm:"type:date;not null"       json:"start_date"`
	EndDate     time.Time `gorm:"type:date;not null"       json:"end_date"`
	RequestType string    `gorm:"type:varchar(20);not null" json:"request_type"` // vacation | sick | personal | unpaid
	Reason      string    `gorm:"type:text"                json:"reason,omitempty"`
	BaseModel
}

// TableName 指定表名
func (TimeOffRequest) TableName() string { return "time_off_requests" }

func (t *TimeOffRequest) BeforeCreate(*gorm.DB) error {
	newID(&t.TimeOffID)
	return nil
}

// Covers 判断请假是否覆盖某日（按日期比较，忽略时分）
func (t *TimeOffRequest) Covers(date time.Time) bool {
	d := DateKey(date)
	return DateKey(t.StartDate) <= d && d <= DateKey(t.EndDate)
}

// DateKey 返回 YYYY-MM-DD，用于跨时区安全地比较日期
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
