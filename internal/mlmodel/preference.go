package mlmodel

import (
	"fmt"
	"math"

	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// 偏好因子
const (
	FactorDay = iota
	FactorTime
	FactorDepartment
	FactorWeekend
	FactorHours
	numFactors
)

// priorWeights 未拟合（单一类别）时使用的固定权重
var priorWeights = []float64{0.30, 0.30, 0.15, 0.15, 0.10}

// 梯度下降参数
const (
	fitIterations = 500
	learningRate  = 0.5
	l2Penalty     = 1e-3
)

// Query 待评分的（员工, 班次）组合
type Query struct {
	EmployeeID   string
	DepartmentID string
	DayOfWeek    int
	StartHour    int
	Hours        float64
}

// PreferenceModel 员工班次偏好模型：五个历史频率因子上的逻辑回归
type PreferenceModel struct {
	Weights   []float64                 `json:"weights"`
	Bias      float64                   `json:"bias"`
	Fitted    bool                      `json:"fitted"`
	Employees map[string]*EmployeeStats `json:"employees"`
}

// Factors 计算因子向量，各分量均在 [0,1]
func Factors(st *EmployeeStats, q Query) []float64 {
	f := make([]float64, numFactors)
	total := float64(st.TotalShifts)
	if total == 0 {
		f[FactorDay] = 1.0 / 7
		f[FactorTime] = 0.25
		f[FactorDepartment] = 0
		f[FactorWeekend] = 2.0 / 7
		f[FactorHours] = 1
		return f
	}
	if q.DayOfWeek >= 0 && q.DayOfWeek < len(st.ShiftsByDay) {
		f[FactorDay] = float64(st.ShiftsByDay[q.DayOfWeek]) / total
	}
	f[FactorTime] = float64(st.ShiftsByTime[TimeCategory(q.StartHour)]) / total
	f[FactorDepartment] = float64(st.Departments[q.DepartmentID]) / total
	if q.DayOfWeek >= 5 {
		f[FactorWeekend] = float64(st.ShiftsByDay[5]+st.ShiftsByDay[6]) / total
	} else {
		f[FactorWeekend] = 1
	}
	avg := st.AvgHours()
	if avg > 0 && q.Hours > 0 {
		f[FactorHours] = math.Min(q.Hours/avg, avg/q.Hours)
	} else {
		f[FactorHours] = 1
	}
	return f
}

// Predict 返回偏好分与置信度；员工不在训练数据中时 ok=false
func (m *PreferenceModel) Predict(q Query) (score, confidence float64, ok bool) {
	st, found := m.Employees[q.EmployeeID]
	if !found {
		return 0, 0, false
	}
	return m.score(Factors(st, q)), math.Min(1, float64(st.TotalShifts)/50), true
}

func (m *PreferenceModel) score(f []float64) float64 {
	if !m.Fitted {
		var s float64
		for k, w := range priorWeights {
			s += w * f[k]
		}
		return clamp01(s)
	}
	z := m.Bias
	for k, w := range m.Weights {
		z += w * f[k]
	}
	return sigmoid(z)
}

// TrainPreference 拟合偏好模型
// 标签为 accepted；仅有单一类别时保留先验权重，不做拟合
func TrainPreference(samples []Sample) (*PreferenceModel, Metrics, error) {
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("%w: no valid samples", pkgerrors.ErrTrainingData)
	}
	stats := BuildStats(samples)

	xs := make([][]float64, len(samples))
	ys := make([]bool, len(samples))
	var pos int
	for i := range samples {
		s := &samples[i]
		xs[i] = Factors(stats[s.EmployeeID], Query{
			EmployeeID:   s.EmployeeID,
			DepartmentID: s.DepartmentID,
			DayOfWeek:    s.DayOfWeek,
			StartHour:    s.StartHour,
			Hours:        s.Hours,
		})
		ys[i] = s.Accepted
		if s.Accepted {
			pos++
		}
	}

	m := &PreferenceModel{
		Weights:   append([]float64(nil), priorWeights...),
		Employees: stats,
	}
	if pos > 0 && pos < len(samples) {
		m.Weights, m.Bias = fitLogistic(xs, ys)
		m.Fitted = true
	}

	scores := make([]float64, len(xs))
	var correct int
	for i, x := range xs {
		scores[i] = m.score(x)
		if (scores[i] >= 0.5) == ys[i] {
			correct++
		}
	}

	metrics := Metrics{
		"accuracy":                round4(float64(correct) / float64(len(samples))),
		"auc":                     round4(auc(scores, ys)),
		"num_employees":           float64(len(stats)),
		"avg_shifts_per_employee": round4(float64(len(samples)) / float64(len(stats))),
	}
	return m, metrics, nil
}

// fitLogistic 批量梯度下降，固定迭代次数，结果只取决于输入
func fitLogistic(xs [][]float64, ys []bool) ([]float64, float64) {
	w := make([]float64, numFactors)
	var b float64
	n := float64(len(xs))
	for it := 0; it < fitIterations; it++ {
		gw := make([]float64, numFactors)
		var gb float64
		for i, x := range xs {
			z := b
			for k := range w {
				z += w[k] * x[k]
			}
			y := 0.0
			if ys[i] {
				y = 1
			}
			d := sigmoid(z) - y
			for k := range w {
				gw[k] += d * x[k]
			}
			gb += d
		}
		for k := range w {
			w[k] -= learningRate * (gw[k]/n + l2Penalty*w[k])
		}
		b -= learningRate * gb / n
	}
	return w, b
}
