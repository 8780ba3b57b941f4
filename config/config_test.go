package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际 %d", cfg.Server.Port)
	}
	if cfg.Scheduling.MaxHorizonDays != 366 {
		t.Errorf("期望 max_horizon_days=366，实际 %d", cfg.Scheduling.MaxHorizonDays)
	}
	if cfg.Scheduling.GenerationTimeout != 5*time.Minute {
		t.Errorf("期望 generation_timeout=5m，实际 %s", cfg.Scheduling.GenerationTimeout)
	}
	if cfg.ML.MinTrainingSamples != 10 {
		t.Errorf("期望 min_training_samples=10，实际 %d", cfg.ML.MinTrainingSamples)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("默认配置应通过校验: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
db:
  driver: sqlite
  sqlite_path: test.db
scheduling:
  min_rest_hours: 8
  cancel_check_every: 5
ml:
  models_dir: /tmp/models
  min_training_samples: 3
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际 %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("期望 driver=sqlite，实际 %s", cfg.Database.Driver)
	}
	if cfg.Scheduling.MinRestHours != 8 {
		t.Errorf("期望 min_rest_hours=8，实际 %v", cfg.Scheduling.MinRestHours)
	}
	if cfg.ML.MinTrainingSamples != 3 {
		t.Errorf("期望 min_training_samples=3，实际 %d", cfg.ML.MinTrainingSamples)
	}
	// 未覆盖的字段保留默认值
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("期望 concurrency=4，实际 %d", cfg.Worker.Concurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "默认配置", mutate: func(c *Config) {}, wantErr: false},
		{name: "端口越界", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "未知驱动", mutate: func(c *Config) { c.Database.Driver = "oracle" }, wantErr: true},
		{name: "时区非法", mutate: func(c *Config) { c.Scheduling.Timezone = "Mars/Base" }, wantErr: true},
		{name: "样本阈值为0", mutate: func(c *Config) { c.ML.MinTrainingSamples = 0 }, wantErr: true},
		{name: "并发为0", mutate: func(c *Config) { c.Worker.Concurrency = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
