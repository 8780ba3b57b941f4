package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	ML         MLConfig         `mapstructure:"ml"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
	RateLimit    int        `mapstructure:"rate_limit"` // 每分钟提交任务次数上限，0 表示不限
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// Driver 为 postgres（生产）或 sqlite（本地开发）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置，Addr 为空时使用进程内锁
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulingConfig 排班引擎参数
type SchedulingConfig struct {
	MaxHorizonDays     int           `mapstructure:"max_horizon_days"`
	MinRestHours       float64       `mapstructure:"min_rest_hours"`
	MaxConsecutiveDays int           `mapstructure:"max_consecutive_days"`
	CancelCheckEvery   int           `mapstructure:"cancel_check_every"` // 每处理多少个班次检查一次取消标记
	GenerationTimeout  time.Duration `mapstructure:"generation_timeout"`
	Timezone           string        `mapstructure:"timezone"`
}

// MLConfig 模型训练配置
type MLConfig struct {
	ModelsDir          string        `mapstructure:"models_dir"`
	MinTrainingSamples int           `mapstructure:"min_training_samples"`
	TrainingTimeout    time.Duration `mapstructure:"training_timeout"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
}

// WorkerConfig 后台任务配置
type WorkerConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	JanitorSpec string `mapstructure:"janitor_spec"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SCHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 8<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit", 30)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "scheduler")
	v.SetDefault("db.user", "scheduler")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.sqlite_path", "scheduler.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scheduling.max_horizon_days", 366)
	v.SetDefault("scheduling.min_rest_hours", 10.0)
	v.SetDefault("scheduling.max_consecutive_days", 6)
	v.SetDefault("scheduling.cancel_check_every", 25)
	v.SetDefault("scheduling.generation_timeout", "5m")
	v.SetDefault("scheduling.timezone", "UTC")

	v.SetDefault("ml.models_dir", "./ml-models")
	v.SetDefault("ml.min_training_samples", 10)
	v.SetDefault("ml.training_timeout", "15m")
	v.SetDefault("ml.lock_ttl", "30m")

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.janitor_spec", "@every 1m")
}

// Default 返回仅含默认值的配置（测试与 CLI 工具使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres 或 sqlite，实际 %q", c.Database.Driver)
	}
	if c.Scheduling.MaxHorizonDays <= 0 {
		return fmt.Errorf("配置校验失败: scheduling.max_horizon_days 必须大于 0")
	}
	if c.Scheduling.CancelCheckEvery <= 0 {
		return fmt.Errorf("配置校验失败: scheduling.cancel_check_every 必须大于 0")
	}
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: scheduling.timezone 无效: %w", err)
	}
	if c.ML.MinTrainingSamples < 1 {
		return fmt.Errorf("配置校验失败: ml.min_training_samples 不能小于 1")
	}
	if c.ML.ModelsDir == "" {
		return fmt.Errorf("配置校验失败: ml.models_dir 不能为空")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("配置校验失败: worker.concurrency 必须大于 0")
	}
	return nil
}

// Location 返回排班使用的时区
func (c *SchedulingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
