package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carbonex30/scheduler/internal/dto"
)

func newGenerateCmd(configPath *string) *cobra.Command {
	req := dto.GenerateScheduleRequest{}

	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "同步生成排班表并输出结果 JSON",
		Example: "  scheduler generate --start 2025-01-06 --end 2025-01-12 --dept <id> --use-ml",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			// Ctrl-C 取消上下文，生成任务按取消处理
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc := a.newService(nil)
			result, genErr := svc.Schedule.GenerateSchedule(ctx, &req)
			if result != nil {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			}
			if genErr != nil {
				return genErr
			}
			if !result.Success {
				return fmt.Errorf("排班生成失败: %v", result.Errors)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.StartDate, "start", "", "开始日期 YYYY-MM-DD")
	f.StringVar(&req.EndDate, "end", "", "结束日期 YYYY-MM-DD（含）")
	f.StringSliceVar(&req.DepartmentIDs, "dept", nil, "部门 ID，可重复；为空表示全部部门")
	f.BoolVar(&req.UseML, "use-ml", false, "使用已训练的偏好模型打分")
	f.StringVar(&req.Name, "name", "", "排班表名称")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
