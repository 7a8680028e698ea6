package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 在 JSON 中以字符串表示的 time.Duration
//
// 解析时接受 "2s"、"150ms" 这类字符串，也接受表示纳秒数的整数；
// 输出时总是字符串。
//
//	{"shutdown_timeout": "2s"}
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	// 整数纳秒，小数或越界的数字被拒绝
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("duration must be a string or integer nanoseconds, got %s", string(data))
}

// MarshalJSON 实现 json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 返回 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回 time.Duration 的字符串形式
func (d Duration) String() string {
	return time.Duration(d).String()
}
