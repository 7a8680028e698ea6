// Package log 提供 simnet 统一日志接口
//
// 基于 Go 标准库 log/slog 封装。各组件通过 Logger("component") 获取懒加载 logger，
// 日志调用时才读取当前默认 handler，测试中可随时重定向输出。
//
// 环境变量：
//   - SIMNET_LOG_LEVEL: 组件=级别,组件=级别,默认级别
//     示例: simnet/discovery=debug,simnet/fault=warn,info
//   - SIMNET_LOG_FORMAT: text 或 json
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

var (
	// levels 各组件的日志级别，未配置的组件使用 defaultLevel
	levels       = map[string]slog.Level{}
	defaultLevel = slog.LevelInfo
	levelsMu     sync.RWMutex
)

// SetDefault 设置默认 logger
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// SetOutput 设置日志输出目标
//
// 以当前默认级别重新创建默认 logger，常用于测试中捕获日志。
func SetOutput(w io.Writer) {
	slog.SetDefault(newLogger(w, jsonFormat(os.Getenv("SIMNET_LOG_FORMAT"))))
}

// SetLevel 设置默认日志级别
func SetLevel(level slog.Level) {
	levelsMu.Lock()
	defaultLevel = level
	levelsMu.Unlock()
}

// SetComponentLevel 设置指定组件的日志级别
func SetComponentLevel(component string, level slog.Level) {
	levelsMu.Lock()
	levels[component] = level
	levelsMu.Unlock()
}

// levelFor 返回组件的有效日志级别
func levelFor(component string) slog.Level {
	levelsMu.RLock()
	defer levelsMu.RUnlock()
	if lvl, ok := levels[component]; ok {
		return lvl
	}
	return defaultLevel
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler，并按组件级别过滤。
//
//	var logger = log.Logger("simnet/fault")
//	logger.Debug("drop", "dst", dst)
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

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return slog.Default().With("component", l.component).With(args...)
}

// Enabled 判断组件是否启用指定级别
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return level >= levelFor(l.component)
}

// ============================================================================
//                              配置解析
// ============================================================================

// parseLevelConfig 解析日志级别配置字符串
// 格式: component=level,component=level,defaultLevel
func parseLevelConfig(s string) {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, lvl, ok := strings.Cut(part, "="); ok {
			if level, ok := parseLevel(lvl); ok {
				SetComponentLevel(strings.TrimSpace(name), level)
			}
			continue
		}
		if level, ok := parseLevel(part); ok {
			SetLevel(level)
		}
	}
}

// parseLevel 解析日志级别名称
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
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

func jsonFormat(s string) bool {
	return strings.EqualFold(s, "json")
}

// newLogger 创建 handler 级别全开的 logger，级别过滤由 LazyLogger 负责
func newLogger(w io.Writer, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TruncateID 安全截取 ID 用于日志显示
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func init() {
	if s := os.Getenv("SIMNET_LOG_LEVEL"); s != "" {
		parseLevelConfig(s)
	}
	slog.SetDefault(newLogger(os.Stderr, jsonFormat(os.Getenv("SIMNET_LOG_FORMAT"))))
}
