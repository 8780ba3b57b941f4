package model

import (
	"strings"
	"testing"
	"time"

	"github.com/carbonex30/scheduler/pkg/database"
)

func tableDDL(t *testing.T, name string) string {
	t.Helper()
	db, err := database.NewMemoryDB(strings.ReplaceAll(t.Name(), "/", "_"), All()...)
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	var ddl string
	if err := db.Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&ddl).Error; err != nil {
		t.Fatalf("读取 %s 建表语句失败: %v", name, err)
	}
	return ddl
}

// 外键方向：employees → departments，assignments → employees / shift_templates
func TestSchema_ForeignKeyDirection(t *testing.T) {
	tests := []struct {
		table   string
		want    []string
		notWant []string
	}{
		{table: "departments", notWant: []string{"REFERENCES"}},
		{table: "shift_templates", notWant: []string{"REFERENCES"}},
		{table: "employees", want: []string{"REFERENCES `departments`"}, notWant: []string{"`assignments`"}},
		{table: "assignments", want: []string{"REFERENCES `employees`", "REFERENCES `shift_templates`"}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			ddl := tableDDL(t, tt.table)
			if ddl == "" {
				t.Fatalf("表 %s 不存在", tt.table)
			}
			for _, w := range tt.want {
				if !strings.Contains(ddl, w) {
					t.Errorf("%s 建表语句应包含 %q: %s", tt.table, w, ddl)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(ddl, w) {
					t.Errorf("%s 建表语句不应包含 %q: %s", tt.table, w, ddl)
				}
			}
		})
	}
}

func TestSchema_InsertChainWithForeignKeys(t *testing.T) {
	db, err := database.NewMemoryDB("TestSchema_InsertChainWithForeignKeys", All()...)
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	dept := &Department{Name: "D1", IsActive: true}
	if err := db.Create(dept).Error; err != nil {
		t.Fatalf("创建部门失败: %v", err)
	}
	emp := &Employee{DepartmentID: dept.DepartmentID, FirstName: "A", EmploymentType: EmploymentFullTime, MaxHoursPerWeek: 40, IsActive: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("创建员工失败: %v", err)
	}
	tpl := &ShiftTemplate{DepartmentID: dept.DepartmentID, Name: "Morning", StartTime: "09:00", EndTime: "13:00", DurationHours: 4, RequiredEmployees: 1, IsActive: true}
	if err := db.Create(tpl).Error; err != nil {
		t.Fatalf("创建班次模板失败: %v", err)
	}
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	sched := &Schedule{Name: "W2", StartDate: day, EndDate: day, Status: ScheduleGenerated}
	if err := db.Create(sched).Error; err != nil {
		t.Fatalf("创建排班表失败: %v", err)
	}
	a := &Assignment{
		ScheduleID: sched.ScheduleID, EmployeeID: emp.EmployeeID, ShiftTemplateID: tpl.ShiftTemplateID,
		ShiftDate: day, StartTime: "09:00", EndTime: "13:00",
		StartsAt: day.Add(9 * time.Hour), EndsAt: day.Add(13 * time.Hour), Hours: 4, Score: 1,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("创建分配失败: %v", err)
	}

	var loaded Assignment
	if err := db.Preload("Employee").Preload("ShiftTemplate").First(&loaded, "assignment_id = ?", a.AssignmentID).Error; err != nil {
		t.Fatalf("预加载分配失败: %v", err)
	}
	if loaded.Employee == nil || loaded.Employee.EmployeeID != emp.EmployeeID {
		t.Errorf("预加载员工不正确: %+v", loaded.Employee)
	}
	if loaded.ShiftTemplate == nil || loaded.ShiftTemplate.Name != "Morning" {
		t.Errorf("预加载班次模板不正确: %+v", loaded.ShiftTemplate)
	}

	// 不存在的部门应被外键拒绝
	orphan := &Employee{DepartmentID: "d9999999-0000-0000-0000-000000000000", FirstName: "X", EmploymentType: EmploymentFullTime, MaxHoursPerWeek: 40, IsActive: true}
	if err := db.Create(orphan).Error; err == nil {
		t.Error("引用不存在部门的员工应插入失败")
	}
}
