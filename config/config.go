// Package config 加载服务配置，并维护 Pipeline Node 的构建器注册表。
//
// 配置按层加载，后者覆盖前者：
//  1. 内置默认值
//  2. YAML 配置文件（可选；CONFIG_PATH 或 ./config.yaml）
//  3. 环境变量：VIDEOREC_ 前缀，双下划线表示层级，例如 VIDEOREC_RANK__BACKEND=rpc
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix 是环境变量前缀
	EnvPrefix = "VIDEOREC_"

	// ConfigPathEnvVar 指定配置文件路径
	ConfigPathEnvVar = "CONFIG_PATH"

	// DefaultConfigPath 是未指定时尝试加载的配置文件
	DefaultConfigPath = "config.yaml"
)

// 排序后端
const (
	BackendLightGBM = "lightgbm"
	BackendLR       = "lr"
	BackendRPC      = "rpc"
)

// 快照来源：none 表示启动时从交互日志构建
const (
	StoreNone  = "none"
	StoreFile  = "file"
	StoreRedis = "redis"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Recall   RecallConfig   `koanf:"recall"`
	Rank     RankConfig     `koanf:"rank"`
	Filter   FilterConfig   `koanf:"filter"`
	Store    StoreConfig    `koanf:"store"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`

	// RateLimit 是每个客户端 IP 每分钟的请求上限，0 表示不限流
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`

	DefaultTopK int `koanf:"default_topk" validate:"gte=1"`
	MaxTopK     int `koanf:"max_topk" validate:"gtefield=DefaultTopK"`
}

type DataConfig struct {
	// InteractionsPath 是 MovieLens u.data 格式的交互日志
	InteractionsPath string `koanf:"interactions_path"`

	// Threshold 是正反馈评分阈值
	Threshold int `koanf:"threshold" validate:"gte=1"`
}

type RecallConfig struct {
	OverFetch int `koanf:"over_fetch" validate:"gte=1"`
	Workers   int `koanf:"workers" validate:"gte=0"`
}

type RankConfig struct {
	Backend   string `koanf:"backend" validate:"oneof=lightgbm lr rpc"`
	ModelPath string `koanf:"model_path" validate:"required_unless=Backend rpc"`
	Endpoint  string `koanf:"endpoint" validate:"required_if=Backend rpc"`
	Threads   int    `koanf:"threads" validate:"gte=0"`

	Timeout         time.Duration `koanf:"timeout" validate:"gte=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
}

type FilterConfig struct {
	// Expr 是 CEL 过滤表达式，为 true 时过滤，例如 "item.score < 2.0"
	Expr string `koanf:"expr"`

	// Blacklist 是固定的物品黑名单
	Blacklist []int64 `koanf:"blacklist"`

	// BlacklistKey 是 Store 中黑名单的 key（仅 redis）
	BlacklistKey string `koanf:"blacklist_key"`
}

type StoreConfig struct {
	Backend       string        `koanf:"backend" validate:"oneof=none file redis"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"gte=0"`
	RedisTimeout  time.Duration `koanf:"redis_timeout" validate:"gte=0"`
	SnapshotKey   string        `koanf:"snapshot_key"`
	SnapshotPath  string        `koanf:"snapshot_path" validate:"required_if=Backend file"`
}

type PipelineConfig struct {
	// Path 是可选的 Pipeline YAML；为空时使用默认链路
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default 返回内置默认配置。
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit:    600,
			DefaultTopK:  10,
			MaxTopK:      100,
		},
		Data: DataConfig{
			InteractionsPath: "data/ml-100k/u.data",
			Threshold:        4,
		},
		Recall: RecallConfig{
			OverFetch: 10,
		},
		Rank: RankConfig{
			Backend:         BackendLightGBM,
			ModelPath:       "model.txt",
			Threads:         1,
			Timeout:         2 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Store: StoreConfig{
			Backend:      StoreNone,
			RedisTimeout: time.Second,
			SnapshotKey:  "videorec:snapshot",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load 按 默认值 → 配置文件 → 环境变量 的顺序加载配置并校验。
// path 为空时依次尝试 CONFIG_PATH 与 ./config.yaml，都不存在则跳过文件层。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// envTransform: VIDEOREC_RANK__MODEL_PATH -> rank.model_path
func envTransform(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置取值。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
