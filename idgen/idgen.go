// Package idgen 提供请求 ID 生成器，支持 Snowflake 与 Sonyflake 两种算法.
package idgen

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sony/sonyflake"

	"github.com/wyfcoding/wordmask/config"
)

var (
	// ErrUnsupportedType 不支持的生成器类型.
	ErrUnsupportedType = errors.New("unsupported id generator type")
	// ErrInvalidMachineID 机器 ID 越界.
	ErrInvalidMachineID = errors.New("machine_id out of range")
)

const (
	maxRetries = 3
	dateLayout = "2006-01-02"
)

var defaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator ID 生成器.
type Generator interface {
	Generate() int64
}

// SnowflakeGenerator 每毫秒 4096 个 ID，最多 1024 个节点.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

func startTime(cfg config.IDGenConfig) (time.Time, error) {
	if cfg.StartTime == "" {
		return defaultStart, nil
	}
	st, err := time.Parse(dateLayout, cfg.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start time %q: %w", cfg.StartTime, err)
	}
	return st, nil
}

// NewSnowflakeGenerator 创建 Snowflake 生成器. 注意 snowflake.Epoch 是包级变量.
func NewSnowflakeGenerator(cfg config.IDGenConfig) (*SnowflakeGenerator, error) {
	st, err := startTime(cfg)
	if err != nil {
		return nil, err
	}
	snowflake.Epoch = st.UnixMilli()

	node, err := snowflake.NewNode(cfg.MachineID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &SnowflakeGenerator{node: node}, nil
}

// Generate 实现 Generator.
func (g *SnowflakeGenerator) Generate() int64 {
	return g.node.Generate().Int64()
}

// SonyflakeGenerator 每 10ms 256 个 ID，最多 65536 个节点.
type SonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflakeGenerator 创建 Sonyflake 生成器. 机器 ID 取自配置而非内网 IP.
func NewSonyflakeGenerator(cfg config.IDGenConfig) (*SonyflakeGenerator, error) {
	st, err := startTime(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MachineID < 0 || cfg.MachineID > 0xFFFF {
		return nil, ErrInvalidMachineID
	}

	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: st,
		MachineID: func() (uint16, error) {
			return uint16(cfg.MachineID & 0xFFFF), nil //nolint:gosec // 已做范围校验.
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create sonyflake: %w", err)
	}
	return &SonyflakeGenerator{sf: sf}, nil
}

// Generate 实现 Generator. 时钟回拨等错误重试 maxRetries 次后返回 0.
func (g *SonyflakeGenerator) Generate() int64 {
	for i := range maxRetries {
		id, err := g.sf.NextID()
		if err == nil {
			return int64(id & 0x7FFFFFFFFFFFFFFF) //nolint:gosec // 已屏蔽符号位.
		}
		slog.Warn("sonyflake generate failed, retrying", "retry", i+1, "error", err)
		time.Sleep(10 * time.Millisecond)
	}
	slog.Error("sonyflake generate failed after retries")
	return 0
}

// NewGenerator 按配置创建生成器.
func NewGenerator(cfg config.IDGenConfig) (Generator, error) {
	switch cfg.Type {
	case "snowflake", "":
		return NewSnowflakeGenerator(cfg)
	case "sonyflake":
		return NewSonyflakeGenerator(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}

var (
	mu               sync.RWMutex
	defaultGenerator Generator
)

// Init 设置全局生成器，可重复调用.
func Init(cfg config.IDGenConfig) error {
	g, err := NewGenerator(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	defaultGenerator = g
	mu.Unlock()
	slog.Info("id generator initialized", "type", cfg.Type, "machine_id", cfg.MachineID)
	return nil
}

// Default 返回全局生成器，未初始化时使用机器 ID 1 的 Snowflake.
func Default() Generator {
	mu.RLock()
	g := defaultGenerator
	mu.RUnlock()
	if g != nil {
		return g
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultGenerator == nil {
		sg, err := NewSnowflakeGenerator(config.IDGenConfig{MachineID: 1})
		if err != nil {
			panic(fmt.Errorf("init default id generator: %w", err))
		}
		defaultGenerator = sg
	}
	return defaultGenerator
}

// GenIDString 生成十进制字符串形式的 ID.
func GenIDString() string {
	return strconv.FormatInt(Default().Generate(), 10)
}
