package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/carbonex30/scheduler/internal/model"
	"github.com/carbonex30/scheduler/internal/repository"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoItems      = errors.New("排班表中无分配")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// 导出格式
const (
	ExportXLSX = "xlsx"
	ExportICS  = "ics"
)

// ExportFile 导出结果，由 Handler 设置响应头后写入
type ExportFile struct {
	Content     *bytes.Buffer
	Filename    string
	ContentType string
}

// ExportService 导出业务接口
//
//   - xlsx：明细 Sheet（按日期、开始时间、员工排序）+ 员工工时汇总 Sheet
//   - ics：每条分配一个 VEVENT，可直接导入日历
type ExportService interface {
	ExportSchedule(ctx context.Context, scheduleID, format string) (*ExportFile, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var weekdayNames = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

func (s *exportService) ExportSchedule(ctx context.Context, scheduleID, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportXLSX
	}
	if format != ExportXLSX && format != ExportICS {
		return nil, fmt.Errorf("%w: unsupported export format %q", pkgerrors.ErrValidation, format)
	}

	schedule, err := s.repo.Schedule.GetByID(ctx, scheduleID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询排班表失败", zap.Error(err))
		return nil, fmt.Errorf("%w: get schedule: %v", pkgerrors.ErrStorage, err)
	}

	items, err := s.repo.Schedule.ListAssignments(ctx, scheduleID)
	if err != nil {
		s.logger.Error("查询分配明细失败", zap.Error(err))
		return nil, fmt.Errorf("%w: list assignments: %v", pkgerrors.ErrStorage, err)
	}
	if len(items) == 0 {
		return nil, ErrExportNoItems
	}

	if format == ExportICS {
		return s.exportICS(schedule, items)
	}
	return s.exportXLSX(schedule, items)
}

// ═══════════════════════════════════════════════════════════
// Excel
// ═══════════════════════════════════════════════════════════
//
// Sheet "排班表"：
//   - 第 1 行标题（排班表名称 + 日期范围）
//   - 第 2 行表头：日期 | 星期 | 班次 | 时间 | 员工 | 工时 | 得分
//
// Sheet "工时汇总"：员工 | 班次数 | 总工时

func (s *exportService) exportXLSX(schedule *model.Schedule, items []model.Assignment) (*ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "排班表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 8)
	f.SetColWidth(sheetName, "C", "C", 18)
	f.SetColWidth(sheetName, "D", "D", 14)
	f.SetColWidth(sheetName, "E", "E", 20)
	f.SetColWidth(sheetName, "F", "G", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	headers := []string{"日期", "星期", "班次", "时间", "员工", "工时", "得分"}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s（%s ~ %s）", schedule.Name,
		model.DateKey(schedule.StartDate), model.DateKey(schedule.EndDate)))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	type summary struct {
		name   string
		shifts int
		hours  float64
	}
	perEmployee := make(map[string]*summary)

	row := 3
	for i := range items {
		a := &items[i]
		shiftName, employeeName := describe(a)
		weekday := (int(a.ShiftDate.Weekday()) + 6) % 7

		f.SetCellValue(sheetName, cell("A", row), model.DateKey(a.ShiftDate))
		f.SetCellValue(sheetName, cell("B", row), weekdayNames[weekday])
		f.SetCellValue(sheetName, cell("C", row), shiftName)
		f.SetCellValue(sheetName, cell("D", row), fmt.Sprintf("%s-%s", a.StartTime, a.EndTime))
		f.SetCellValue(sheetName, cell("E", row), employeeName)
		f.SetCellValue(sheetName, cell("F", row), a.Hours)
		f.SetCellValue(sheetName, cell("G", row), a.Score)
		row++

		sum, ok := perEmployee[a.EmployeeID]
		if !ok {
			sum = &summary{name: employeeName}
			perEmployee[a.EmployeeID] = sum
		}
		sum.shifts++
		sum.hours += a.Hours
	}

	// 工时汇总
	summarySheet := "工时汇总"
	f.NewSheet(summarySheet)
	f.SetColWidth(summarySheet, "A", "A", 20)
	f.SetColWidth(summarySheet, "B", "C", 10)
	for i, h := range []string{"员工", "班次数", "总工时"} {
		f.SetCellValue(summarySheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(summarySheet, "A1", "C1", headerStyle)

	ids := make([]string, 0, len(perEmployee))
	for id := range perEmployee {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := perEmployee[ids[i]], perEmployee[ids[j]]
		if a.name != b.name {
			return a.name < b.name
		}
		return ids[i] < ids[j]
	})
	for i, id := range ids {
		sum := perEmployee[id]
		f.SetCellValue(summarySheet, cell("A", i+2), sum.name)
		f.SetCellValue(summarySheet, cell("B", i+2), sum.shifts)
		f.SetCellValue(summarySheet, cell("C", i+2), sum.hours)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return &ExportFile{
		Content:     buf,
		Filename:    fmt.Sprintf("schedule_%s_%s.xlsx", model.DateKey(schedule.StartDate), model.DateKey(schedule.EndDate)),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}

// ═══════════════════════════════════════════════════════════
// iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) exportICS(schedule *model.Schedule, items []model.Assignment) (*ExportFile, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//carbonex30//scheduler//EN")
	cal.SetXWRCalName(schedule.Name)

	stamp := time.Now().UTC()
	if schedule.PublishedAt != nil {
		stamp = schedule.PublishedAt.UTC()
	} else if schedule.GenerationCompletedAt != nil {
		stamp = schedule.GenerationCompletedAt.UTC()
	}

	for i := range items {
		a := &items[i]
		shiftName, employeeName := describe(a)

		event := cal.AddEvent(a.AssignmentID + "@scheduler")
		event.SetDtStampTime(stamp)
		event.SetStartAt(a.StartsAt.UTC())
		event.SetEndAt(a.EndsAt.UTC())
		event.SetSummary(fmt.Sprintf("%s - %s", shiftName, employeeName))
		event.SetDescription(fmt.Sprintf("%s %.2fh", schedule.Name, a.Hours))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return &ExportFile{
		Content:     buf,
		Filename:    fmt.Sprintf("schedule_%s_%s.ics", model.DateKey(schedule.StartDate), model.DateKey(schedule.EndDate)),
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

// ── 辅助函数 ──

func describe(a *model.Assignment) (shiftName, employeeName string) {
	shiftName, employeeName = a.ShiftTemplateID, a.EmployeeID
	if a.ShiftTemplate != nil {
		shiftName = a.ShiftTemplate.Name
	}
	if a.Employee != nil {
		employeeName = a.Employee.FullName()
	}
	return shiftName, employeeName
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
