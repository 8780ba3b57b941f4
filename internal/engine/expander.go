package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/carbonex30/scheduler/internal/model"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// ShiftInstance 模板在某一具体日期的班次实例（不落库）
type ShiftInstance struct {
	TemplateID   string
	TemplateName string
	DepartmentID string
	DayOfWeek    int // 0=周一
	Date         time.Time
	Start        time.Time
	End          time.Time
	Hours        float64
	Required     int
	AllowedTypes model.StringArray
}

// Key 实例唯一标识：模板 + 日期
func (i *ShiftInstance) Key() string {
	return i.TemplateID + "@" + model.DateKey(i.Date)
}

// DateRange 闭区间 [Start, End]
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days 区间包含的天数
func (r DateRange) Days() int {
	s := civil(r.Start, time.UTC)
	e := civil(r.End, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// ValidateRange 校验日期区间：非零、end ≥ start、跨度不超过 maxHorizonDays
func ValidateRange(r DateRange, maxHorizonDays int) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", pkgerrors.ErrValidation)
	}
	if civil(r.End, time.UTC).Before(civil(r.Start, time.UTC)) {
		return fmt.Errorf("%w: end_date %s is before start_date %s",
			pkgerrors.ErrValidation, model.DateKey(r.End), model.DateKey(r.Start))
	}
	if maxHorizonDays > 0 && r.Days() > maxHorizonDays {
		return fmt.Errorf("%w: date range spans %d days, maximum is %d",
			pkgerrors.ErrValidation, r.Days(), maxHorizonDays)
	}
	return nil
}

// ExpandShifts 将模板展开为区间内的班次实例
// departmentIDs 为空表示全部部门；输出按开始时刻、模板 ID 排序
func ExpandShifts(templates []model.ShiftTemplate, r DateRange, departmentIDs []string, loc *time.Location) ([]ShiftInstance, error) {
	if loc == nil {
		loc = time.UTC
	}
	depts := make(map[string]bool, len(departmentIDs))
	for _, id := range departmentIDs {
		depts[id] = true
	}

	first := civil(r.Start, loc)
	last := civil(r.End, loc)

	var out []ShiftInstance
	for i := range templates {
		t := &templates[i]
		if !t.IsActive {
			continue
		}
		if len(depts) > 0 && !depts[t.DepartmentID] {
			continue
		}
		if t.DayOfWeek < 0 || t.DayOfWeek > 6 {
			return nil, fmt.Errorf("%w: shift template %s has day_of_week %d, must be 0-6",
				pkgerrors.ErrValidation, t.Name, t.DayOfWeek)
		}
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if d.Weekday() != t.Weekday() {
				continue
			}
			start, end, err := t.Window(d, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", pkgerrors.ErrValidation, err)
			}
			out = append(out, ShiftInstance{
				TemplateID:   t.ShiftTemplateID,
				TemplateName: t.Name,
				DepartmentID: t.DepartmentID,
				DayOfWeek:    t.DayOfWeek,
				Date:         d,
				Start:        start,
				End:          end,
				Hours:        t.Hours(),
				Required:     t.Required(),
				AllowedTypes: t.AllowedEmploymentTypes,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].TemplateID < out[j].TemplateID
	})
	return out, nil
}

// civil 取日期部分并落到 loc 的零点
func civil(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
