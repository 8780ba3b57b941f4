package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"

	"github.com/carbonex30/scheduler/internal/dto"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

func generatedSchedule(t *testing.T, env *testEnv) string {
	t.Helper()
	res, err := env.svc.Schedule.GenerateSchedule(context.Background(), mondayRequest(false))
	if err != nil || res.NumAssignments != 2 {
		t.Fatalf("生成排班失败: %v", err)
	}
	return res.ScheduleID
}

func TestExportService_XLSX(t *testing.T) {
	env := newTestEnv(t)
	id := generatedSchedule(t, env)

	file, err := env.svc.Export.ExportSchedule(context.Background(), id, "")
	if err != nil {
		t.Fatalf("ExportSchedule 失败: %v", err)
	}
	if file.Filename != "schedule_2025-01-06_2025-01-06.xlsx" {
		t.Errorf("文件名不正确: %s", file.Filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(file.Content.Bytes()))
	if err != nil {
		t.Fatalf("解析 Excel 失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("排班表")
	if err != nil {
		t.Fatalf("读取明细 Sheet 失败: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("期望标题 + 表头 + 2 行数据，实际 %d 行", len(rows))
	}
	if rows[1][0] != "日期" || rows[1][4] != "员工" {
		t.Errorf("表头不正确: %v", rows[1])
	}
	if rows[2][0] != "2025-01-06" || rows[2][1] != "周一" || rows[2][2] != "Morning" || rows[2][3] != "09:00-13:00" {
		t.Errorf("数据行不正确: %v", rows[2])
	}

	summary, err := f.GetRows("工时汇总")
	if err != nil {
		t.Fatalf("读取汇总 Sheet 失败: %v", err)
	}
	if len(summary) != 3 {
		t.Fatalf("期望表头 + 2 名员工，实际 %d 行", len(summary))
	}
	if summary[1][1] != "1" || summary[1][2] != "4" {
		t.Errorf("汇总数据不正确: %v", summary[1])
	}
}

func TestExportService_ICS(t *testing.T) {
	env := newTestEnv(t)
	id := generatedSchedule(t, env)

	file, err := env.svc.Export.ExportSchedule(context.Background(), id, ExportICS)
	if err != nil {
		t.Fatalf("ExportSchedule 失败: %v", err)
	}
	if !strings.HasPrefix(file.ContentType, "text/calendar") {
		t.Errorf("Content-Type 不正确: %s", file.ContentType)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(file.Content.String()))
	if err != nil {
		t.Fatalf("解析日历失败: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("期望 2 个事件，实际 %d", len(events))
	}
	start, err := events[0].GetStartAt()
	if err != nil {
		t.Fatalf("读取开始时间失败: %v", err)
	}
	if !start.Equal(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("事件开始时间不正确: %v", start)
	}
	if summary := events[0].GetProperty(ics.ComponentPropertySummary); summary == nil || !strings.HasPrefix(summary.Value, "Morning") {
		t.Errorf("事件标题不正确: %v", summary)
	}
}

func TestExportService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Export.ExportSchedule(ctx, "00000000-0000-0000-0000-000000000000", ExportXLSX); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("期望 ErrScheduleNotFound，实际 %v", err)
	}

	draft, _ := env.svc.Schedule.CreateSchedule(ctx, &dto.CreateScheduleRequest{
		Name: "empty", StartDate: "2025-01-06", EndDate: "2025-01-12",
	})
	if _, err := env.svc.Export.ExportSchedule(ctx, draft.ID, ExportXLSX); !errors.Is(err, ErrExportNoItems) {
		t.Errorf("期望 ErrExportNoItems，实际 %v", err)
	}
	if _, err := env.svc.Export.ExportSchedule(ctx, draft.ID, "pdf"); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("不支持的格式应返回 ErrValidation，实际 %v", err)
	}
}
