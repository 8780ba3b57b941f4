package engine

import (
	"fmt"
	"time"

	"github.com/carbonex30/scheduler/internal/mlmodel"
	"github.com/carbonex30/scheduler/internal/model"
)

// ConflictDetector 疲劳风险提示，只产生 warning，不阻止分配
type ConflictDetector interface {
	Check(e *model.Employee, inst *ShiftInstance, l *Ledger) []string
}

// NoopDetector 未加载冲突模型时使用
type NoopDetector struct{}

func (NoopDetector) Check(*model.Employee, *ShiftInstance, *Ledger) []string { return nil }

// RestDetector 休息间隔与连续出勤检测
type RestDetector struct {
	MinRest        time.Duration
	MaxConsecutive int
}

// NewRestDetector 以模型阈值为准，模型未学到的阈值使用配置值
func NewRestDetector(m *mlmodel.ConflictModel, minRestHours float64, maxConsecutiveDays int) *RestDetector {
	d := &RestDetector{
		MinRest:        time.Duration(minRestHours * float64(time.Hour)),
		MaxConsecutive: maxConsecutiveDays,
	}
	if m != nil && m.MinRestHours > 0 {
		d.MinRest = time.Duration(m.MinRestHours * float64(time.Hour))
	}
	if m != nil && m.MaxConsecutiveDays > 0 {
		d.MaxConsecutive = m.MaxConsecutiveDays
	}
	return d
}

// Check 在提交前调用，Ledger 尚不包含本次实例
func (d *RestDetector) Check(e *model.Employee, inst *ShiftInstance, l *Ledger) []string {
	var out []string
	if d.MinRest > 0 {
		if prev, ok := l.PreviousEnd(e.EmployeeID, inst.Start); ok {
			if gap := inst.Start.Sub(prev); gap < d.MinRest {
				out = append(out, fmt.Sprintf("rest period risk: %s has %.1fh rest before %s on %s (minimum %.1fh)",
					e.FullName(), gap.Hours(), inst.TemplateName, model.DateKey(inst.Date), d.MinRest.Hours()))
			}
		}
	}
	if d.MaxConsecutive > 0 {
		if n := l.Streak(e.EmployeeID, inst.Start); n > d.MaxConsecutive {
			out = append(out, fmt.Sprintf("consecutive days risk: %s works %d days in a row through %s (maximum %d)",
				e.FullName(), n, model.DateKey(inst.Date), d.MaxConsecutive))
		}
	}
	return out
}
