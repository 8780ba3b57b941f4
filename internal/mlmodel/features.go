package mlmodel

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// Row 一条已解析的历史排班记录
type Row struct {
	EmployeeID    string  `json:"employee_id"    validate:"required"`
	DepartmentID  string  `json:"department_id"  validate:"required"`
	ShiftDate     string  `json:"shift_date"     validate:"required,datetime=2006-01-02"`
	StartTime     string  `json:"start_time"     validate:"required,datetime=15:04"`
	EndTime       string  `json:"end_time"       validate:"omitempty,datetime=15:04"`
	DurationHours float64 `json:"duration_hours" validate:"gt=0,lte=24"`
	Accepted      bool    `json:"accepted"`
}

// Sample 特征提取后的单条样本
type Sample struct {
	EmployeeID   string
	DepartmentID string
	Date         time.Time
	DayOfWeek    int // 0=周一
	StartHour    int
	TimeCategory string
	Start        time.Time
	End          time.Time
	Hours        float64
	Accepted     bool
}

// 时段分类
const (
	TimeMorning   = "morning"
	TimeAfternoon = "afternoon"
	TimeEvening   = "evening"
	TimeNight     = "night"
)

// TimeCategory 按开始小时归类
func TimeCategory(hour int) string {
	switch {
	case hour < 6:
		return TimeNight
	case hour < 12:
		return TimeMorning
	case hour < 17:
		return TimeAfternoon
	case hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

// DayIndex 将 time.Weekday 转换为 0=周一 的约定
func DayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

var validate = validator.New()

// ParseRows 校验并解析历史记录；非法行跳过并记录一条 warning
func ParseRows(rows []Row) ([]Sample, []string) {
	samples := make([]Sample, 0, len(rows))
	var warnings []string
	for i := range rows {
		s, err := parseRow(&rows[i])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d skipped: %v", i+1, err))
			continue
		}
		samples = append(samples, s)
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].EmployeeID != samples[j].EmployeeID {
			return samples[i].EmployeeID < samples[j].EmployeeID
		}
		return samples[i].Start.Before(samples[j].Start)
	})
	return samples, warnings
}

func parseRow(r *Row) (Sample, error) {
	if err := validate.Struct(r); err != nil {
		return Sample{}, err
	}
	date, err := time.Parse("2006-01-02", r.ShiftDate)
	if err != nil {
		return Sample{}, err
	}
	clock, err := time.Parse("15:04", r.StartTime)
	if err != nil {
		return Sample{}, err
	}
	start := date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
	return Sample{
		EmployeeID:   r.EmployeeID,
		DepartmentID: r.DepartmentID,
		Date:         date,
		DayOfWeek:    DayIndex(date.Weekday()),
		StartHour:    clock.Hour(),
		TimeCategory: TimeCategory(clock.Hour()),
		Start:        start,
		End:          start.Add(time.Duration(r.DurationHours * float64(time.Hour))),
		Hours:        r.DurationHours,
		Accepted:     r.Accepted,
	}, nil
}

// EmployeeStats 员工历史出勤统计（仅统计 accepted 样本）
type EmployeeStats struct {
	TotalShifts  int            `json:"total_shifts"`
	TotalHours   float64        `json:"total_hours"`
	ShiftsByDay  [7]int         `json:"shifts_by_day"`
	ShiftsByTime map[string]int `json:"shifts_by_time"`
	Departments  map[string]int `json:"departments"`
}

// AvgHours 平均单班工时
func (s *EmployeeStats) AvgHours() float64 {
	if s.TotalShifts == 0 {
		return 0
	}
	return s.TotalHours / float64(s.TotalShifts)
}

// BuildStats 汇总每个员工的统计；出现过但从未 accepted 的员工也会建档
func BuildStats(samples []Sample) map[string]*EmployeeStats {
	stats := make(map[string]*EmployeeStats)
	for i := range samples {
		s := &samples[i]
		st := stats[s.EmployeeID]
		if st == nil {
			st = &EmployeeStats{
				ShiftsByTime: make(map[string]int),
				Departments:  make(map[string]int),
			}
			stats[s.EmployeeID] = st
		}
		if !s.Accepted {
			continue
		}
		st.TotalShifts++
		st.TotalHours += s.Hours
		st.ShiftsByDay[s.DayOfWeek]++
		st.ShiftsByTime[s.TimeCategory]++
		st.Departments[s.DepartmentID]++
	}
	return stats
}
