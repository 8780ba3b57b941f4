package model

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestShiftTemplate_Window(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("加载时区失败: %v", err)
	}

	tests := []struct {
		name      string
		start     string
		end       string
		date      time.Time
		loc       *time.Location
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name: "UTC 日班", start: "09:00", end: "13:00",
			date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), loc: time.UTC,
			wantStart: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 6, 13, 0, 0, 0, time.UTC),
		},
		{
			name: "跨天夜班", start: "22:00", end: "06:00",
			date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), loc: time.UTC,
			wantStart: time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 7, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "夏令时开始当天", start: "09:00", end: "13:00",
			date: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), loc: ny,
			wantStart: time.Date(2025, 3, 9, 9, 0, 0, 0, ny),
			wantEnd:   time.Date(2025, 3, 9, 13, 0, 0, 0, ny),
		},
		{
			name: "夏令时结束当天", start: "09:00", end: "13:00",
			date: time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC), loc: ny,
			wantStart: time.Date(2025, 11, 2, 9, 0, 0, 0, ny),
			wantEnd:   time.Date(2025, 11, 2, 13, 0, 0, 0, ny),
		},
		{
			name: "跨越夏令时切换的夜班", start: "22:00", end: "06:00",
			date: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), loc: ny,
			wantStart: time.Date(2025, 3, 8, 22, 0, 0, 0, ny),
			wantEnd:   time.Date(2025, 3, 9, 6, 0, 0, 0, ny),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := &ShiftTemplate{Name: "T", StartTime: tt.start, EndTime: tt.end}
			start, end, err := tpl.Window(tt.date, tt.loc)
			if err != nil {
				t.Fatalf("Window 失败: %v", err)
			}
			if !start.Equal(tt.wantStart) {
				t.Errorf("开始时刻期望 %s，实际 %s", tt.wantStart, start)
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("结束时刻期望 %s，实际 %s", tt.wantEnd, end)
			}
			if start.Hour() != tt.wantStart.Hour() {
				t.Errorf("墙上时间小时期望 %d，实际 %d", tt.wantStart.Hour(), start.In(tt.loc).Hour())
			}
		})
	}
}

func TestShiftTemplate_WindowInvalidClock(t *testing.T) {
	tpl := &ShiftTemplate{Name: "T", StartTime: "9am", EndTime: "13:00"}
	if _, _, err := tpl.Window(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), time.UTC); err == nil {
		t.Error("非法开始时间应返回错误")
	}
}

func TestTrainingRecord_MetricValues(t *testing.T) {
	r := &TrainingRecord{Metrics: map[string]interface{}{
		"accuracy":      json.Number("0.9"),
		"auc":           0.75,
		"num_employees": 3,
		"label":         "ignored",
	}}
	got := r.MetricValues()
	if got["accuracy"] != 0.9 || got["auc"] != 0.75 || got["num_employees"] != 3 {
		t.Errorf("指标转换不正确: %v", got)
	}
	if _, ok := got["label"]; ok {
		t.Error("非数值指标应被忽略")
	}
}
