package engine

import (
	"math"

	"github.com/carbonex30/scheduler/internal/mlmodel"
	"github.com/carbonex30/scheduler/internal/model"
)

// 偏好加分
const (
	preferredShiftBoost = 0.3
	preferredDayBoost   = 0.2
)

// mlBlend 模型分在最终得分中的占比，其余为公平性分
const mlBlend = 0.7

// Candidate 一个待评分的（员工, 班次实例）组合
type Candidate struct {
	Employee       *model.Employee
	Instance       *ShiftInstance
	WeekHours      float64 // 本周已占用工时（含其他排班表）
	PreferredShift bool
	PreferredDay   bool
}

// Scorer 候选评分，结果在 [0,1]
type Scorer interface {
	Score(c Candidate) float64
	// MLAssisted 是否由训练模型驱动
	MLAssisted() bool
}

// BaselineScorer 公平性优先：本周工时越少得分越高
type BaselineScorer struct{}

func (BaselineScorer) MLAssisted() bool { return false }

func (BaselineScorer) Score(c Candidate) float64 {
	return clamp01(fairness(c) + boosts(c))
}

// MLScorer 偏好模型评分；训练数据中没有的员工回退到基线
type MLScorer struct {
	model *mlmodel.PreferenceModel
}

// NewMLScorer 包装已加载的偏好模型
func NewMLScorer(m *mlmodel.PreferenceModel) *MLScorer {
	return &MLScorer{model: m}
}

func (*MLScorer) MLAssisted() bool { return true }

func (s *MLScorer) Score(c Candidate) float64 {
	pred, _, ok := s.model.Predict(mlmodel.Query{
		EmployeeID:   c.Employee.EmployeeID,
		DepartmentID: c.Instance.DepartmentID,
		DayOfWeek:    c.Instance.DayOfWeek,
		StartHour:    c.Instance.Start.Hour(),
		Hours:        c.Instance.Hours,
	})
	if !ok {
		return BaselineScorer{}.Score(c)
	}
	return clamp01(mlBlend*pred + (1-mlBlend)*fairness(c) + boosts(c))
}

func fairness(c Candidate) float64 {
	limit := c.Employee.MaxHoursPerWeek
	if limit <= 0 {
		return 0
	}
	return clamp01(1 - c.WeekHours/limit)
}

func boosts(c Candidate) float64 {
	var b float64
	if c.PreferredShift {
		b += preferredShiftBoost
	}
	if c.PreferredDay {
		b += preferredDayBoost
	}
	return b
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
