package engine

import (
	"sort"
	"time"

	"github.com/carbonex30/scheduler/internal/model"
)

type interval struct {
	start time.Time
	end   time.Time
}

type weekKey struct {
	year int
	week int
}

// Ledger 单次生成内的累加器：按 ISO 周统计工时、记录占用区间与出勤日期
// 只属于一次 Optimize 调用，不在并发运行之间共享
type Ledger struct {
	loc   *time.Location
	hours map[string]map[weekKey]float64
	busy  map[string][]interval // 按开始时刻有序
	days  map[string]map[string]bool
}

// NewLedger 创建空累加器
func NewLedger(loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		loc:   loc,
		hours: make(map[string]map[weekKey]float64),
		busy:  make(map[string][]interval),
		days:  make(map[string]map[string]bool),
	}
}

// Seed 载入已确定的班次（其他排班表）
func (l *Ledger) Seed(committed []model.Assignment) {
	for i := range committed {
		a := &committed[i]
		l.Commit(a.EmployeeID, a.StartsAt, a.EndsAt, a.Hours)
	}
}

// Commit 记录一次占用
func (l *Ledger) Commit(employeeID string, start, end time.Time, hours float64) {
	wk := l.week(start)
	if l.hours[employeeID] == nil {
		l.hours[employeeID] = make(map[weekKey]float64)
	}
	l.hours[employeeID][wk] += hours

	list := l.busy[employeeID]
	idx := sort.Search(len(list), func(i int) bool { return list[i].start.After(start) })
	list = append(list, interval{})
	copy(list[idx+1:], list[idx:])
	list[idx] = interval{start: start, end: end}
	l.busy[employeeID] = list

	if l.days[employeeID] == nil {
		l.days[employeeID] = make(map[string]bool)
	}
	l.days[employeeID][model.DateKey(start.In(l.loc))] = true
}

// WeekHours 员工在 t 所属 ISO 周内已占用的工时
func (l *Ledger) WeekHours(employeeID string, t time.Time) float64 {
	return l.hours[employeeID][l.week(t)]
}

// Overlaps [start,end) 是否与已有占用重叠
func (l *Ledger) Overlaps(employeeID string, start, end time.Time) bool {
	for _, iv := range l.busy[employeeID] {
		if !iv.start.Before(end) {
			break
		}
		if start.Before(iv.end) {
			return true
		}
	}
	return false
}

// PreviousEnd 在 before 之前结束的最近一个班次的结束时刻
func (l *Ledger) PreviousEnd(employeeID string, before time.Time) (time.Time, bool) {
	var last time.Time
	found := false
	for _, iv := range l.busy[employeeID] {
		if iv.end.After(before) {
			continue
		}
		if !found || iv.end.After(last) {
			last = iv.end
			found = true
		}
	}
	return last, found
}

// Streak 假设 date 当天出勤时，包含 date 的连续出勤天数
func (l *Ledger) Streak(employeeID string, date time.Time) int {
	worked := l.days[employeeID]
	d := civil(date.In(l.loc), l.loc)
	n := 1
	for p := d.AddDate(0, 0, -1); worked[model.DateKey(p)]; p = p.AddDate(0, 0, -1) {
		n++
	}
	for p := d.AddDate(0, 0, 1); worked[model.DateKey(p)]; p = p.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func (l *Ledger) week(t time.Time) weekKey {
	y, w := t.In(l.loc).ISOWeek()
	return weekKey{year: y, week: w}
}
