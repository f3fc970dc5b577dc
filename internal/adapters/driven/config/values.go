// Package config holds the key/value plumbing shared by the configuration
// stores: typed reads over a flat map of dotted keys, an environment
// overlay, and a store that layers one over another.
package config

import (
	"strconv"
	"strings"
	"sync"
)

// Values is a concurrency-safe map of dotted keys to decoded values.
//
// Values arrive either typed (from TOML) or as strings (from the
// environment), so every getter accepts both.
type Values struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewValues copies seed into a new Values.
func NewValues(seed map[string]any) *Values {
	v := &Values{m: make(map[string]any, len(seed))}
	for k, val := range seed {
		v.m[k] = val
	}
	return v
}

func (v *Values) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[key]
	return val, ok
}

func (v *Values) GetString(key string) string {
	val, _ := v.Get(key)
	s, _ := val.(string)
	return s
}

func (v *Values) GetInt(key string) int {
	val, _ := v.Get(key)
	switch t := val.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if t == float64(int(t)) {
			return int(t)
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return n
		}
	}
	return 0
}

func (v *Values) GetFloat(key string) float64 {
	val, _ := v.Get(key)
	switch t := val.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func (v *Values) GetBool(key string) bool {
	val, _ := v.Get(key)
	switch t := val.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

// GetStringSlice also splits a comma separated string.
func (v *Values) GetStringSlice(key string) []string {
	val, _ := v.Get(key)
	switch t := val.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func (v *Values) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	return keys
}

// Put stores one value.
func (v *Values) Put(key string, value any) {
	v.mu.Lock()
	v.m[key] = value
	v.mu.Unlock()
}

// Replace swaps the whole map, as after re-reading a file.
func (v *Values) Replace(m map[string]any) {
	if m == nil {
		m = make(map[string]any)
	}
	v.mu.Lock()
	v.m = m
	v.mu.Unlock()
}

// Snapshot returns a copy of the current map.
func (v *Values) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]any, len(v.m))
	for k, val := range v.m {
		out[k] = val
	}
	return out
}
