package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/carbonex30/scheduler/internal/model"
)

// Checkpoint 每处理一批实例调用一次，返回非 nil 时中止本次生成
type Checkpoint func(ctx context.Context, processed int) error

// Options 一次 Optimize 的运行参数
type Options struct {
	Scorer           Scorer
	Detector         ConflictDetector
	Location         *time.Location
	CancelCheckEvery int
	Checkpoint       Checkpoint
}

// Result 优化结果
type Result struct {
	Assignments   []model.Assignment
	Instances     int
	RequiredSlots int
	Unassigned    int // 未填满的岗位数
	Score         float64
	Warnings      []string
}

// Optimize 单遍贪心分配
//
//  1. 实例按开始时刻、需求人数降序、模板 ID 排序；
//  2. 候选人按得分降序、本周工时升序、员工 ID 升序排名；
//  3. 依次提交前 Required 名仍满足余量与不重叠的候选人，更新累加器；
//  4. 人数不足记为 warning，不中断。
//
// 输入不变时结果完全确定。
func Optimize(ctx context.Context, instances []ShiftInstance, snap *model.Snapshot, opts Options) (*Result, error) {
	if opts.Scorer == nil {
		opts.Scorer = BaselineScorer{}
	}
	if opts.Detector == nil {
		opts.Detector = NoopDetector{}
	}
	if opts.CancelCheckEvery <= 0 {
		opts.CancelCheckEvery = 25
	}
	if opts.Checkpoint == nil {
		opts.Checkpoint = func(ctx context.Context, _ int) error { return ctx.Err() }
	}

	order := make([]*ShiftInstance, len(instances))
	for i := range instances {
		order[i] = &instances[i]
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Required != b.Required {
			return a.Required > b.Required
		}
		return a.TemplateID < b.TemplateID
	})

	index := NewEligibilityIndex(snap)
	ledger := NewLedger(opts.Location)
	ledger.Seed(snap.Committed)

	res := &Result{Instances: len(order)}
	var scoreSum float64

	for n, inst := range order {
		if n%opts.CancelCheckEvery == 0 {
			if err := opts.Checkpoint(ctx, n); err != nil {
				return nil, err
			}
		}
		res.RequiredSlots += inst.Required

		ranked := rank(index, inst, ledger, opts.Scorer)

		filled := 0
		for _, rc := range ranked {
			if filled == inst.Required {
				break
			}
			// 提交前复核动态约束
			if !index.Available(rc.cand.Employee, inst, ledger) {
				continue
			}
			res.Warnings = append(res.Warnings, opts.Detector.Check(rc.cand.Employee, inst, ledger)...)
			ledger.Commit(rc.cand.Employee.EmployeeID, inst.Start, inst.End, inst.Hours)
			res.Assignments = append(res.Assignments, newAssignment(inst, rc.cand.Employee.EmployeeID, rc.score))
			scoreSum += rc.score
			filled++
		}

		if filled < inst.Required {
			res.Unassigned += inst.Required - filled
			res.Warnings = append(res.Warnings, fmt.Sprintf("insufficient eligible employees for %s on %s",
				inst.TemplateName, model.DateKey(inst.Date)))
		}
	}

	if err := opts.Checkpoint(ctx, len(order)); err != nil {
		return nil, err
	}

	if res.RequiredSlots == 0 {
		res.Score = 1
	} else {
		res.Score = clamp01(scoreSum / float64(res.RequiredSlots))
	}
	return res, nil
}

type rankedCandidate struct {
	cand  Candidate
	score float64
}

func rank(index *EligibilityIndex, inst *ShiftInstance, l *Ledger, scorer Scorer) []rankedCandidate {
	var out []rankedCandidate
	for _, e := range index.Candidates(inst) {
		if !index.Available(e, inst, l) {
			continue
		}
		prefShift, prefDay := index.Preferences(e.EmployeeID, inst)
		c := Candidate{
			Employee:       e,
			Instance:       inst,
			WeekHours:      l.WeekHours(e.EmployeeID, inst.Start),
			PreferredShift: prefShift,
			PreferredDay:   prefDay,
		}
		out = append(out, rankedCandidate{cand: c, score: clamp01(scorer.Score(c))})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.cand.WeekHours != b.cand.WeekHours {
			return a.cand.WeekHours < b.cand.WeekHours
		}
		return a.cand.Employee.EmployeeID < b.cand.Employee.EmployeeID
	})
	return out
}

func newAssignment(inst *ShiftInstance, employeeID string, score float64) model.Assignment {
	return model.Assignment{
		EmployeeID:      employeeID,
		ShiftTemplateID: inst.TemplateID,
		ShiftDate:       inst.Date,
		StartTime:       inst.Start.Format("15:04"),
		EndTime:         inst.End.Format("15:04"),
		StartsAt:        inst.Start,
		EndsAt:          inst.End,
		Hours:           inst.Hours,
		Score:           score,
	}
}
