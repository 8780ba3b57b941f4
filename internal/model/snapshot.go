package model

// Snapshot 一次生成所读取的主数据快照，生成期间只读
type Snapshot struct {
	Departments []Department
	Employees   []Employee
	Templates   []ShiftTemplate
	TimeOff     []TimeOffRequest
	Preferences []EmployeePreference
	// Committed 其他 generated / published 排班表中已确定的班次，计入工时与占用
	Committed []Assignment
}
