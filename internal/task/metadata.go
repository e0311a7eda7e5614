package task

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Recognized metadata keys.
const (
	// MetaUpdateInterval is the minimum gap between runs of a recurring task, in milliseconds.
	MetaUpdateInterval = "updateInterval"
	// MetaUpdatedAt is the epoch-millisecond timestamp written before each recurring run.
	MetaUpdatedAt = "updatedAt"
	// MetaLastRun is an alternative last-execution timestamp, in epoch milliseconds.
	MetaLastRun = "lastRun"
	// MetaRetryCount counts worker-managed retries.
	MetaRetryCount = "retryCount"
	// MetaCron is a standard five-field cron expression used when no interval is set.
	MetaCron = "cron"
)

// Metadata is a free-form key/value bag attached to a task. Values follow JSON
// decoding rules, so numbers may arrive as float64 or json.Number depending on
// the backing store.
type Metadata map[string]any

// Clone returns a deep copy of m. Nested maps and slices are copied too.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return map[string]any(Metadata(x).Clone())
	case Metadata:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}

// Int64 returns the value under key as an integer. Integer and float types,
// json.Number and numeric strings are accepted.
func (m Metadata) Int64(key string) (int64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	return toInt64(v)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// GetString returns the value under key if it is a string.
func (m Metadata) GetString(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// maxIntervalMillis is the largest millisecond count a time.Duration can hold.
const maxIntervalMillis = math.MaxInt64 / int64(time.Millisecond)

// UpdateInterval returns the configured recurrence interval. Values too large
// for a time.Duration are clamped to the longest representable duration.
func (m Metadata) UpdateInterval() (time.Duration, bool) {
	ms, ok := m.Int64(MetaUpdateInterval)
	if !ok {
		return 0, false
	}
	if ms > maxIntervalMillis {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(ms) * time.Millisecond, true
}

// LastRun returns the time of the last execution recorded in metadata,
// preferring updatedAt over lastRun.
func (m Metadata) LastRun() (time.Time, bool) {
	for _, key := range []string{MetaUpdatedAt, MetaLastRun} {
		if t, ok := m.timestamp(key); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m Metadata) timestamp(key string) (time.Time, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t, true
		}
	}
	if ms, ok := toInt64(v); ok {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}

// Cron returns the cron expression, if one is set.
func (m Metadata) Cron() (string, bool) {
	s, ok := m.GetString(MetaCron)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// RetryCount returns the current retry counter, zero when absent.
func (m Metadata) RetryCount() int {
	n, _ := m.Int64(MetaRetryCount)
	return int(n)
}

// WithUpdatedAt returns a copy of m with updatedAt set to at in epoch milliseconds.
func (m Metadata) WithUpdatedAt(at time.Time) Metadata {
	out := m.Clone()
	if out == nil {
		out = Metadata{}
	}
	out[MetaUpdatedAt] = at.UnixMilli()
	return out
}

// IncrementRetry returns a copy of m with retryCount increased by one,
// together with the new count.
func IncrementRetry(m Metadata) (Metadata, int) {
	out := m.Clone()
	if out == nil {
		out = Metadata{}
	}
	n := m.RetryCount() + 1
	out[MetaRetryCount] = n
	return out, n
}
