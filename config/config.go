// Package config 提供了统一的配置加载、校验与热更新能力.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/wordmask/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version   string          `mapstructure:"version"   toml:"version"`
	Log       LogConfig       `mapstructure:"log"       toml:"log"`
	Server    ServerConfig    `mapstructure:"server"    toml:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   toml:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"   toml:"tracing"`
	Filter    FilterConfig    `mapstructure:"filter"    toml:"filter"`
	Cache     CacheConfig     `mapstructure:"cache"     toml:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" toml:"ratelimit"`
	IDGen     IDGenConfig     `mapstructure:"idgen"     toml:"idgen"`
}

// LogConfig 日志配置.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"        toml:"file"`
	Console    bool   `mapstructure:"console"     toml:"console"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// ServerConfig 服务端配置.
type ServerConfig struct {
	Name string     `mapstructure:"name" toml:"name" validate:"required"`
	HTTP HTTPConfig `mapstructure:"http" toml:"http"`
}

// HTTPConfig HTTP 服务配置.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"             toml:"addr"             validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     toml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    toml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"   toml:"max_body_bytes"   validate:"gte=0"`
}

// MetricsConfig 指标配置.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path"    toml:"path"`
}

// TracingConfig 链路追踪配置.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  toml:"sample_ratio"  validate:"gte=0,lte=1"`
}

// FilterConfig 敏感词过滤配置.
type FilterConfig struct {
	Algorithm        string   `mapstructure:"algorithm"         toml:"algorithm"         validate:"oneof=aho-corasick dfa naive"`
	Dictionaries     []string `mapstructure:"dictionaries"      toml:"dictionaries"      validate:"required,min=1,dive,required"`
	Mask             string   `mapstructure:"mask"              toml:"mask"              validate:"required"`
	MaxTextLength    int      `mapstructure:"max_text_length"   toml:"max_text_length"   validate:"gt=0"`
	MaxBatchSize     int      `mapstructure:"max_batch_size"    toml:"max_batch_size"    validate:"gt=0"`
	BatchConcurrency int      `mapstructure:"batch_concurrency" toml:"batch_concurrency" validate:"gt=0"`
	Watch            bool     `mapstructure:"watch"             toml:"watch"`
}

// CacheConfig 结果缓存配置.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"     toml:"ttl"`
	MaxMB   int           `mapstructure:"max_mb"  toml:"max_mb"  validate:"gte=0"`
}

// RateLimitConfig 本地令牌桶限流配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled" toml:"enabled"`
	Rate    float64 `mapstructure:"rate"    toml:"rate"    validate:"gte=0"`
	Burst   int     `mapstructure:"burst"   toml:"burst"   validate:"gte=0"`
}

// IDGenConfig 请求 ID 生成器配置.
type IDGenConfig struct {
	Type      string `mapstructure:"type"       toml:"type"       validate:"oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id" validate:"gte=0,lte=1023"`
	StartTime string `mapstructure:"start_time" toml:"start_time"`
}

var (
	vInstance = viper.New()
	validate  = validator.New()
	hooksMu   sync.Mutex
	onReload  []func(*Config)
)

// SetDefaults 写入默认值，未在文件或环境变量中出现的键使用这些值.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("version", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("server.name", "wordmask")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.read_timeout", 5*time.Second)
	v.SetDefault("server.http.write_timeout", 10*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.http.max_body_bytes", 4<<20)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("tracing.service_name", "wordmask")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("filter.algorithm", "aho-corasick")
	v.SetDefault("filter.mask", "*")
	v.SetDefault("filter.max_text_length", 1<<20)
	v.SetDefault("filter.max_batch_size", 100)
	v.SetDefault("filter.batch_concurrency", 8)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.max_mb", 256)
	v.SetDefault("ratelimit.rate", 200)
	v.SetDefault("ratelimit.burst", 400)
	v.SetDefault("idgen.type", "snowflake")
	v.SetDefault("idgen.machine_id", 1)
}

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	defer hooksMu.Unlock()
	onReload = append(onReload, hook)
}

// runReloadHooks 在锁外依次执行 hook，hook 内可再注册新的 hook.
func runReloadHooks(next *Config) {
	hooksMu.Lock()
	hooks := slices.Clone(onReload)
	hooksMu.Unlock()
	for _, hook := range hooks {
		hook(next)
	}
}

// Validate 校验配置.
func Validate(conf *Config) error {
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Decode 从给定 viper 实例解码并校验配置.
func Decode(v *viper.Viper) (*Config, error) {
	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := Validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// Load 读取 TOML 配置文件，支持 APP_ 前缀的环境变量覆盖，并开启文件监听热更新.
// 热更新成功后会同步全局日志级别并依次执行 reload hook.
func Load(path string) (*Config, error) {
	vInstance.SetConfigFile(path)
	vInstance.SetConfigType("toml")

	vInstance.SetEnvPrefix("APP")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()
	SetDefaults(vInstance)

	if err := vInstance.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	conf, err := Decode(vInstance)
	if err != nil {
		return nil, err
	}

	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next, decodeErr := Decode(vInstance)
		if decodeErr != nil {
			slog.Error("reload config failed, keeping previous config", "error", decodeErr)
			return
		}

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")
		runReloadHooks(next)
	})
	vInstance.WatchConfig()

	return conf, nil
}

// LoggingConfig 转换为日志模块配置.
func (c *Config) LoggingConfig(module string) logging.Config {
	return logging.Config{
		Service:    c.Server.Name,
		Module:     module,
		Level:      c.Log.Level,
		File:       c.Log.File,
		Console:    c.Log.Console,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}

// MaskRune 返回屏蔽字符.
func (f FilterConfig) MaskRune() rune {
	for _, r := range f.Mask {
		return r
	}
	return '*'
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}

// GetViper 返回底层的 Viper 实例.
func GetViper() *viper.Viper {
	return vInstance
}
