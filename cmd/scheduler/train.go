package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carbonex30/scheduler/internal/dto"
	"github.com/carbonex30/scheduler/internal/mlmodel"
	"github.com/carbonex30/scheduler/internal/model"
)

func newTrainCmd(configPath *string) *cobra.Command {
	var (
		file      string
		modelType string
		modelName string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "使用历史排班记录训练模型",
		Long:  "--file 为历史记录 JSON 数组（employee_id, department_id, shift_date, start_time, end_time, duration_hours, accepted）。",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRows(file)
			if err != nil {
				return err
			}

			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc := a.newService(nil)
			result, trainErr := svc.Training.TrainModel(ctx, &dto.TrainModelRequest{
				Rows:      rows,
				ModelType: modelType,
				ModelName: modelName,
			})
			if result != nil {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			}
			return trainErr
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "历史记录 JSON 文件")
	f.StringVarP(&modelType, "type", "t", model.ModelTypePreference,
		fmt.Sprintf("模型类型：%s 或 %s", model.ModelTypePreference, model.ModelTypeConflict))
	f.StringVar(&modelName, "name", "", "模型名称")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readRows(path string) ([]mlmodel.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取训练数据失败: %w", err)
	}
	var rows []mlmodel.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("解析训练数据失败: %w", err)
	}
	return rows, nil
}
