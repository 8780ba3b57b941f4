package mlmodel

import (
	"math"
	"sort"
)

// Metrics 训练指标，按模型类型取不同字段
type Metrics map[string]float64

// Map 转为通用 map，便于写入 JSON 列
func (m Metrics) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// auc 基于排名的 ROC AUC；单一类别时返回 0.5
func auc(scores []float64, labels []bool) float64 {
	type pair struct {
		score float64
		label bool
	}
	ps := make([]pair, len(scores))
	var pos, neg int
	for i := range scores {
		ps[i] = pair{scores[i], labels[i]}
		if labels[i] {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].score < ps[j].score })

	// 平均秩处理并列
	var rankSum float64
	for i := 0; i < len(ps); {
		j := i
		for j < len(ps) && ps[j].score == ps[i].score {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if ps[k].label {
				rankSum += avg
			}
		}
		i = j
	}
	u := rankSum - float64(pos*(pos+1))/2
	return u / float64(pos*neg)
}

// prf 计算 precision / recall / f1
func prf(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
