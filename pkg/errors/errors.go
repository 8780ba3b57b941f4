package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 排班引擎错误分类 ──
//
// 可恢复的局部问题（班次无人可排、模型缺失）只作为 warning 附在结果上；
// 以下哨兵错误用于会中断操作的情况，调用方通过 errors.Is 判断类别。

var (
	// ErrValidation 请求参数非法（日期范围、必填字段），任务启动前即拒绝
	ErrValidation = errors.New("validation error")
	// ErrConcurrentGeneration 同一排班表已有生成任务在执行
	ErrConcurrentGeneration = errors.New("schedule is currently generating")
	// ErrConcurrentTraining 同一模型类型已有训练任务在执行
	ErrConcurrentTraining = errors.New("training already running for model type")
	// ErrTrainingData 训练数据不足或不可用
	ErrTrainingData = errors.New("training data error")
	// ErrModelUnavailable 找不到或无法加载模型，引擎回退到基线评分
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrStorage 持久化失败，当前任务中止
	ErrStorage = errors.New("storage error")
	// ErrIllegalTransition 排班表状态机非法迁移
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrCancelled 生成任务被取消
	ErrCancelled = errors.New("cancelled")
)
