package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		Long:  "postgres 应用内嵌的 SQL 迁移文件；sqlite 使用 AutoMigrate。",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.migrate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "数据库迁移完成 (%s)\n", a.cfg.Database.Driver)
			return nil
		},
	}
}
