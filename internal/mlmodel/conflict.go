package mlmodel

import (
	"fmt"
	"math"

	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// ConflictModel 冲突检测阈值
// MinRestHours / MaxConsecutiveDays 为 0 表示数据不足以学习，由调用方使用配置值
type ConflictModel struct {
	MinRestHours       float64 `json:"min_rest_hours"`
	MaxConsecutiveDays int     `json:"max_consecutive_days"`
}

// restStep 候选阈值步长（小时）
const restStep = 0.5

// TrainConflict 学习最小休息时长与最大连续出勤天数
//
// 对每条有前序班次的样本，取距上一个 accepted 班次结束的间隔；
// 以“未被接受”为正类，在 [0,24] 内按 restStep 搜索使 F1 最大的阈值（并列取较小值）。
func TrainConflict(samples []Sample) (*ConflictModel, Metrics, error) {
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("%w: no valid samples", pkgerrors.ErrTrainingData)
	}

	type obs struct {
		gap      float64
		conflict bool
	}
	var observations []obs
	maxStreak := 0

	// samples 已按员工、开始时刻排序
	for i := 0; i < len(samples); {
		j := i
		for j < len(samples) && samples[j].EmployeeID == samples[i].EmployeeID {
			j++
		}
		var lastEnd *Sample
		streak := 0
		var lastDay *Sample
		for k := i; k < j; k++ {
			s := &samples[k]
			if lastEnd != nil {
				gap := s.Start.Sub(lastEnd.End).Hours()
				if gap >= 0 {
					observations = append(observations, obs{gap: gap, conflict: !s.Accepted})
				}
			}
			if !s.Accepted {
				continue
			}
			switch {
			case lastDay == nil:
				streak = 1
			case s.Date.Equal(lastDay.Date):
			case s.Date.Equal(lastDay.Date.AddDate(0, 0, 1)):
				streak++
			default:
				streak = 1
			}
			lastDay = s
			if streak > maxStreak {
				maxStreak = streak
			}
			if lastEnd == nil || s.End.After(lastEnd.End) {
				lastEnd = s
			}
		}
		i = j
	}

	best := struct {
		threshold, precision, recall, f1 float64
	}{}
	for th := 0.0; th <= 24; th += restStep {
		var tp, fp, fn int
		for _, o := range observations {
			flagged := o.gap < th
			switch {
			case flagged && o.conflict:
				tp++
			case flagged && !o.conflict:
				fp++
			case !flagged && o.conflict:
				fn++
			}
		}
		p, r, f := prf(tp, fp, fn)
		if f > best.f1+1e-12 {
			best.threshold, best.precision, best.recall, best.f1 = th, p, r, f
		}
	}

	m := &ConflictModel{
		MinRestHours:       best.threshold,
		MaxConsecutiveDays: maxStreak,
	}
	metrics := Metrics{
		"precision":            round4(best.precision),
		"recall":               round4(best.recall),
		"f1":                   round4(best.f1),
		"min_rest_hours":       math.Round(m.MinRestHours*10) / 10,
		"max_consecutive_days": float64(m.MaxConsecutiveDays),
		"num_observations":     float64(len(observations)),
	}
	return m, metrics, nil
}
