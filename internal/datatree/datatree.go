// Package datatree holds helpers for the untyped content trees read out of
// container objects: nil, bool, int64, uint64, float64, string, []any and
// map[string]any.
package datatree

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Normalize returns v in canonical form. Integers become int64 (uint64 only
// above math.MaxInt64), float32 becomes float64, json.Number is resolved by
// its spelling, and nested sequences and mappings are rebuilt recursively.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, int64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		return canonicalUint(uint64(t)), nil
	case uint64:
		return canonicalUint(t), nil
	case float32:
		return float64(t), nil
	case json.Number:
		return parseNumber(string(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func canonicalUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func parseNumber(s string) (any, error) {
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse number %q: %w", s, err)
		}
		return f, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", s, err)
	}
	return u, nil
}

// Clone deep-copies sequences and mappings. Scalars are shared.
func Clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two normalized trees hold the same values. NaN
// equals NaN.
func Equal(a, b any) bool {
	switch ta := a.(type) {
	case float64:
		tb, ok := b.(float64)
		return ok && (ta == tb || (math.IsNaN(ta) && math.IsNaN(tb)))
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// Int reads an integral number. Floats qualify only when they hold a whole
// value.
func Int(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// Mapping returns v as a mapping.
func Mapping(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Sequence returns v as a sequence.
func Sequence(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// String returns the string stored under key in m, or "" when absent or not
// a string.
func String(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
