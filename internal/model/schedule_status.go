package model

import (
	"fmt"

	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// ScheduleStatus 排班表生命周期状态（封闭枚举）
type ScheduleStatus string

const (
	ScheduleDraft      ScheduleStatus = "draft"
	ScheduleGenerating ScheduleStatus = "generating"
	ScheduleGenerated  ScheduleStatus = "generated"
	SchedulePublished  ScheduleStatus = "published"
	ScheduleFailed     ScheduleStatus = "failed"
)

// scheduleTransitions 合法迁移表
//
//	draft → generating → generated → published
//	generating → failed → generating（重试）
var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleDraft:      {ScheduleGenerating},
	ScheduleGenerating: {ScheduleGenerated, ScheduleFailed},
	ScheduleGenerated:  {SchedulePublished},
	ScheduleFailed:     {ScheduleGenerating},
	SchedulePublished:  {},
}

// TransitionError 非法状态迁移
type TransitionError struct {
	From ScheduleStatus
	To   ScheduleStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("schedule status cannot change from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return pkgerrors.ErrIllegalTransition }

// ParseScheduleStatus 解析外部传入的状态字符串
func ParseScheduleStatus(s string) (ScheduleStatus, error) {
	st := ScheduleStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown schedule status %q", pkgerrors.ErrValidation, s)
	}
	return st, nil
}

// Valid 是否为已定义状态
func (s ScheduleStatus) Valid() bool {
	_, ok := scheduleTransitions[s]
	return ok
}

// CanTransitionTo 是否允许迁移到 to
func (s ScheduleStatus) CanTransitionTo(to ScheduleStatus) bool {
	for _, next := range scheduleTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition 校验迁移并返回新状态
func (s ScheduleStatus) Transition(to ScheduleStatus) (ScheduleStatus, error) {
	if !s.CanTransitionTo(to) {
		return s, &TransitionError{From: s, To: to}
	}
	return to, nil
}

// IsTerminal 终态：不再有任何出边
func (s ScheduleStatus) IsTerminal() bool {
	return s.Valid() && len(scheduleTransitions[s]) == 0
}

// CanStartGeneration 仅 draft 与 failed 可开始生成
func (s ScheduleStatus) CanStartGeneration() bool {
	return s.CanTransitionTo(ScheduleGenerating)
}

// CanDelete 生成中的排班表必须先完成或取消
func (s ScheduleStatus) CanDelete() bool {
	return s != ScheduleGenerating
}

// GenerationSources 可进入 generating 的来源状态
func GenerationSources() []ScheduleStatus {
	var out []ScheduleStatus
	for _, from := range []ScheduleStatus{ScheduleDraft, ScheduleGenerating, ScheduleGenerated, SchedulePublished, ScheduleFailed} {
		if from.CanTransitionTo(ScheduleGenerating) {
			out = append(out, from)
		}
	}
	return out
}
