package engine

import (
	"sort"

	"github.com/carbonex30/scheduler/internal/model"
)

// EligibilityIndex 硬约束判定
//
// 静态条件（在职、部门/机动、雇佣类型、请假、回避偏好）在构建时索引，
// 动态条件（周工时余量、时间重叠）依赖 Ledger，在每次提交前重新判定。
type EligibilityIndex struct {
	employees   []*model.Employee // 按 EmployeeID 升序
	byID        map[string]*model.Employee
	timeOff     map[string][]model.TimeOffRequest
	avoidShift  map[string]map[string]bool
	avoidDay    map[string]map[int]bool
	preferShift map[string]map[string]bool
	preferDay   map[string]map[int]bool
}

// NewEligibilityIndex 基于快照构建索引
func NewEligibilityIndex(snap *model.Snapshot) *EligibilityIndex {
	x := &EligibilityIndex{
		byID:        make(map[string]*model.Employee, len(snap.Employees)),
		timeOff:     make(map[string][]model.TimeOffRequest),
		avoidShift:  make(map[string]map[string]bool),
		avoidDay:    make(map[string]map[int]bool),
		preferShift: make(map[string]map[string]bool),
		preferDay:   make(map[string]map[int]bool),
	}
	for i := range snap.Employees {
		e := &snap.Employees[i]
		x.employees = append(x.employees, e)
		x.byID[e.EmployeeID] = e
	}
	sort.Slice(x.employees, func(i, j int) bool {
		return x.employees[i].EmployeeID < x.employees[j].EmployeeID
	})

	for _, t := range snap.TimeOff {
		x.timeOff[t.EmployeeID] = append(x.timeOff[t.EmployeeID], t)
	}

	for _, p := range snap.Preferences {
		if !p.IsActive {
			continue
		}
		switch p.PreferenceType {
		case model.PreferenceAvoidShift:
			if p.ShiftTemplateID != nil {
				setString(x.avoidShift, p.EmployeeID, *p.ShiftTemplateID)
			}
		case model.PreferenceShift:
			if p.ShiftTemplateID != nil {
				setString(x.preferShift, p.EmployeeID, *p.ShiftTemplateID)
			}
		case model.PreferenceAvoidDays:
			if p.DayOfWeek != nil {
				setInt(x.avoidDay, p.EmployeeID, *p.DayOfWeek)
			}
		case model.PreferenceDays:
			if p.DayOfWeek != nil {
				setInt(x.preferDay, p.EmployeeID, *p.DayOfWeek)
			}
		}
	}
	return x
}

// Employee 按 ID 查找
func (x *EligibilityIndex) Employee(id string) *model.Employee {
	return x.byID[id]
}

// Candidates 满足全部静态条件的员工，按 ID 升序
func (x *EligibilityIndex) Candidates(inst *ShiftInstance) []*model.Employee {
	var out []*model.Employee
	for _, e := range x.employees {
		if x.staticOK(e, inst) {
			out = append(out, e)
		}
	}
	return out
}

func (x *EligibilityIndex) staticOK(e *model.Employee, inst *ShiftInstance) bool {
	if !e.IsActive {
		return false
	}
	if e.DepartmentID != inst.DepartmentID && !e.IsFloater {
		return false
	}
	if len(inst.AllowedTypes) > 0 && !inst.AllowedTypes.Contains(e.EmploymentType) {
		return false
	}
	for i := range x.timeOff[e.EmployeeID] {
		if x.timeOff[e.EmployeeID][i].Covers(inst.Date) {
			return false
		}
	}
	if x.avoidShift[e.EmployeeID][inst.TemplateID] {
		return false
	}
	if x.avoidDay[e.EmployeeID][inst.DayOfWeek] {
		return false
	}
	return true
}

// Available 动态条件：周工时余量与无重叠
func (x *EligibilityIndex) Available(e *model.Employee, inst *ShiftInstance, l *Ledger) bool {
	if l.WeekHours(e.EmployeeID, inst.Start)+inst.Hours > e.MaxHoursPerWeek+hoursEpsilon {
		return false
	}
	return !l.Overlaps(e.EmployeeID, inst.Start, inst.End)
}

// Preferences 员工对该实例的偏好命中情况
func (x *EligibilityIndex) Preferences(employeeID string, inst *ShiftInstance) (shift, day bool) {
	return x.preferShift[employeeID][inst.TemplateID], x.preferDay[employeeID][inst.DayOfWeek]
}

// hoursEpsilon 吸收 numeric 列往返带来的浮点误差
const hoursEpsilon = 1e-9

func setString(m map[string]map[string]bool, k, v string) {
	if m[k] == nil {
		m[k] = make(map[string]bool)
	}
	m[k][v] = true
}

func setInt(m map[string]map[int]bool, k string, v int) {
	if m[k] == nil {
		m[k] = make(map[int]bool)
	}
	m[k][v] = true
}
