package dto

import (
	"time"

	"github.com/carbonex30/scheduler/internal/model"
)

// ── 排班模块 DTO ──

// CreateScheduleRequest 创建草稿排班表
type CreateScheduleRequest struct {
	Name          string   `json:"name"           binding:"required,max=255"`
	StartDate     string   `json:"start_date"     binding:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date"       binding:"required,datetime=2006-01-02"`
	DepartmentIDs []string `json:"department_ids" binding:"omitempty,dive,uuid"`
	Notes         string   `json:"notes"          binding:"omitempty,max=2000"`
}

// UpdateScheduleRequest 修改排班表名称 / 备注
// Version 为客户端读取时的版本号，不一致时返回冲突
type UpdateScheduleRequest struct {
	Name    *string `json:"name"    binding:"omitempty,min=1,max=255"`
	Notes   *string `json:"notes"   binding:"omitempty,max=2000"`
	Version int     `json:"version" binding:"required,min=1"`
}

// GenerateScheduleRequest 生成排班请求
type GenerateScheduleRequest struct {
	StartDate     string   `json:"start_date"     binding:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date"       binding:"required,datetime=2006-01-02"`
	DepartmentIDs []string `json:"department_ids" binding:"omitempty,dive,uuid"`
	UseML         bool     `json:"use_ml"`
	Name          string   `json:"name"           binding:"omitempty,max=255"`
	Notes         string   `json:"notes"          binding:"omitempty,max=2000"`
}

// RegenerateScheduleRequest 对已有排班表重新生成
type RegenerateScheduleRequest struct {
	UseML bool `json:"use_ml"`
}

// ScheduleListRequest 排班表列表查询参数
type ScheduleListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=draft generating generated published failed"`
	PaginationRequest
}

// ── 响应 ──

// GenerateScheduleResult 生成结果；success=false 时 errors 非空
type GenerateScheduleResult struct {
	Success                   bool     `json:"success"`
	ScheduleID                string   `json:"schedule_id"`
	NumAssignments            int      `json:"num_assignments"`
	NumUnassignedShifts       int      `json:"num_unassigned_shifts"`
	OptimizerScore            float64  `json:"optimizer_score"`
	GenerationDurationSeconds float64  `json:"generation_duration_seconds"`
	MLAssisted                bool     `json:"ml_assisted"`
	Warnings                  []string `json:"warnings"`
	Errors                    []string `json:"errors"`
}

// SubmitResponse 异步任务提交响应，进度通过状态轮询
type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ScheduleResponse 排班表响应
type ScheduleResponse struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	StartDate                 string   `json:"start_date"`
	EndDate                   string   `json:"end_date"`
	Status                    string   `json:"status"`
	DepartmentIDs             []string `json:"department_ids,omitempty"`
	GenerationStartedAt       *string  `json:"generation_started_at,omitempty"`
	GenerationCompletedAt     *string  `json:"generation_completed_at,omitempty"`
	GenerationDurationSeconds float64  `json:"generation_duration_seconds"`
	OptimizerScore            *float64 `json:"optimizer_score"`
	MLAssisted                bool     `json:"ml_assisted"`
	NumAssignments            int      `json:"num_assignments"`
	NumUnassignedShifts       int      `json:"num_unassigned_shifts"`
	Warnings                  []string `json:"warnings"`
	Errors                    []string `json:"errors"`
	CancelRequested           bool     `json:"cancel_requested"`
	Notes                     string   `json:"notes,omitempty"`
	PublishedAt               *string  `json:"published_at,omitempty"`
	Version                   int      `json:"version"`
	CreatedAt                 string   `json:"created_at"`
	UpdatedAt                 string   `json:"updated_at"`
}

// AssignmentResponse 排班明细响应
type AssignmentResponse struct {
	ID              string         `json:"id"`
	ScheduleID      string         `json:"schedule_id"`
	ShiftDate       string         `json:"shift_date"`
	StartTime       string         `json:"start_time"`
	EndTime         string         `json:"end_time"`
	StartsAt        string         `json:"starts_at"`
	EndsAt          string         `json:"ends_at"`
	Hours           float64        `json:"hours"`
	Score           float64        `json:"score"`
	IsConfirmed     bool           `json:"is_confirmed"`
	Employee        *EmployeeBrief `json:"employee,omitempty"`
	ShiftTemplateID string         `json:"shift_template_id"`
	ShiftName       string         `json:"shift_name,omitempty"`
}

// EmployeeBrief 员工简要信息
type EmployeeBrief struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DepartmentID   string `json:"department_id"`
	EmploymentType string `json:"employment_type"`
}

// ── 转换 ──

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(DateTimeLayout)
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// NewScheduleResponse 将模型转换为响应
func NewScheduleResponse(s *model.Schedule) *ScheduleResponse {
	return &ScheduleResponse{
		ID:                        s.ScheduleID,
		Name:                      s.Name,
		StartDate:                 s.StartDate.Format(DateLayout),
		EndDate:                   s.EndDate.Format(DateLayout),
		Status:                    string(s.Status),
		DepartmentIDs:             s.DepartmentIDs,
		GenerationStartedAt:       formatTime(s.GenerationStartedAt),
		GenerationCompletedAt:     formatTime(s.GenerationCompletedAt),
		GenerationDurationSeconds: s.GenerationDurationSeconds,
		OptimizerScore:            s.OptimizerScore,
		MLAssisted:                s.MLAssisted,
		NumAssignments:            s.NumAssignments,
		NumUnassignedShifts:       s.NumUnassignedShifts,
		Warnings:                  nonNil(s.Warnings),
		Errors:                    nonNil(s.Errors),
		CancelRequested:           s.CancelRequested,
		Notes:                     s.Notes,
		PublishedAt:               formatTime(s.PublishedAt),
		Version:                   s.Version,
		CreatedAt:                 s.CreatedAt.UTC().Format(DateTimeLayout),
		UpdatedAt:                 s.UpdatedAt.UTC().Format(DateTimeLayout),
	}
}

// NewAssignmentResponse 将分配转换为响应
func NewAssignmentResponse(a *model.Assignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:              a.AssignmentID,
		ScheduleID:      a.ScheduleID,
		ShiftDate:       a.ShiftDate.Format(DateLayout),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		StartsAt:        a.StartsAt.UTC().Format(DateTimeLayout),
		EndsAt:          a.EndsAt.UTC().Format(DateTimeLayout),
		Hours:           a.Hours,
		Score:           a.Score,
		IsConfirmed:     a.IsConfirmed,
		ShiftTemplateID: a.ShiftTemplateID,
	}
	if a.Employee != nil {
		resp.Employee = &EmployeeBrief{
			ID:             a.Employee.EmployeeID,
			Name:           a.Employee.FullName(),
			DepartmentID:   a.Employee.DepartmentID,
			EmploymentType: a.Employee.EmploymentType,
		}
	}
	if a.ShiftTemplate != nil {
		resp.ShiftName = a.ShiftTemplate.Name
	}
	return resp
}
