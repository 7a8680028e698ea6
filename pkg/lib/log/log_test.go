package log

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSetOutput 测试输出重定向
func TestSetOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	Logger("test").Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "component=test")
}

// TestComponentLevel 测试按组件过滤级别
func TestComponentLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	SetComponentLevel("quiet", slog.LevelWarn)
	SetComponentLevel("loud", slog.LevelDebug)

	Logger("quiet").Info("hidden")
	Logger("loud").Debug("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, Logger("quiet").Enabled(slog.LevelInfo))
}

// TestParseLevelConfig 测试环境变量格式解析
func TestParseLevelConfig(t *testing.T) {
	levelsMu.Lock()
	saved := defaultLevel
	levelsMu.Unlock()
	defer SetLevel(saved)

	parseLevelConfig("simnet/a=debug, simnet/b=error ,warn,bogus=nope")

	assert.Equal(t, slog.LevelDebug, levelFor("simnet/a"))
	assert.Equal(t, slog.LevelError, levelFor("simnet/b"))
	assert.Equal(t, slog.LevelWarn, levelFor("other"))
	assert.Equal(t, slog.LevelWarn, levelFor("bogus"))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", TruncateID("abc", 8))
	assert.Equal(t, "abcdefgh", TruncateID("abcdefghij", 8))
}
