// Package log 提供 linkdisc 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，按组件输出结构化日志。
//
// 支持通过环境变量配置：
//   - LINKDISC_LOG_LEVEL: 日志级别，支持按组件配置
//     格式: 组件=级别,组件=级别,默认级别
//     示例: discovery/topology=debug,core/fabric=warn,info
//   - LINKDISC_LOG_FORMAT: 日志格式 (text 或 json)
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// 环境变量名
const (
	EnvLevel  = "LINKDISC_LOG_LEVEL"
	EnvFormat = "LINKDISC_LOG_FORMAT"
)

// ============================================================================
//                              配置
// ============================================================================

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// ComponentLevels 各组件的日志级别
	ComponentLevels map[string]slog.Level

	// JSON 是否输出 JSON 格式
	JSON bool
}

// LevelFor 获取指定组件的日志级别
func (c *Config) LevelFor(component string) slog.Level {
	if level, ok := c.ComponentLevels[component]; ok {
		return level
	}
	return c.DefaultLevel
}

// minLevel 返回所有配置中最低的级别，作为 handler 的下限
func (c *Config) minLevel() slog.Level {
	lowest := c.DefaultLevel
	for _, l := range c.ComponentLevels {
		if l < lowest {
			lowest = l
		}
	}
	return lowest
}

// ParseConfig 解析级别配置字符串
//
// 格式: component=level,component=level,defaultLevel
func ParseConfig(levelStr, format string) *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		ComponentLevels: make(map[string]slog.Level),
		JSON:            strings.EqualFold(format, "json"),
	}
	for _, part := range strings.Split(levelStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if k, v, ok := strings.Cut(part, "="); ok {
			if level, ok := ParseLevel(v); ok {
				cfg.ComponentLevels[strings.TrimSpace(k)] = level
			}
			continue
		}
		if level, ok := ParseLevel(part); ok {
			cfg.DefaultLevel = level
		}
	}
	return cfg
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

var (
	current   = ParseConfig("", "")
	currentMu sync.RWMutex
)

// Setup 根据配置重建默认 logger
func Setup(w io.Writer, cfg *Config) {
	if cfg == nil {
		cfg = ParseConfig("", "")
	}
	opts := &slog.HandlerOptions{Level: cfg.minLevel()}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	currentMu.Lock()
	current = cfg
	currentMu.Unlock()
	slog.SetDefault(slog.New(h))
}

// SetupFromEnv 从环境变量初始化默认 logger
func SetupFromEnv(w io.Writer) {
	Setup(w, ParseConfig(os.Getenv(EnvLevel), os.Getenv(EnvFormat)))
}

// SetOutput 设置日志输出目标，保留当前级别配置
//
// 常用于将日志输出到文件。
func SetOutput(w io.Writer) {
	currentMu.RLock()
	cfg := current
	currentMu.RUnlock()
	Setup(w, cfg)
}

// SetLevel 设置默认日志级别
func SetLevel(level slog.Level) {
	currentMu.RLock()
	cfg := *current
	currentMu.RUnlock()
	cfg.DefaultLevel = level
	Setup(os.Stderr, &cfg)
}

func levelFor(component string) slog.Level {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current.LevelFor(component)
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler，
// 支持在运行时动态切换日志输出目标。
//
// 使用方式：
//
//	var logger = log.Logger("discovery/topology")
//	logger.Info("hello")
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if level < levelFor(l.component) {
		return
	}
	slog.Default().With("component", l.component).Log(ctx, level, msg, args...)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args...)
}

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

// InfoContext 带 context 的 Info 日志
func (l *LazyLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

// Enabled 判断组件是否启用指定级别
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return level >= levelFor(l.component)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return slog.Default().With("component", l.component).With(args...)
}

func init() {
	SetupFromEnv(os.Stderr)
}
