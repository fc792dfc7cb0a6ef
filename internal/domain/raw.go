// Package domain defines core data structures shared by the pipeline stages.
package domain

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RawRecord is a loosely-typed record as returned by a venue endpoint.
// Field names and value types vary per source, so every read goes through
// an ordered-fallback lookup instead of a fixed schema.
type RawRecord map[string]any

// First returns the value of the first key that is present and non-nil.
func (r RawRecord) First(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Text returns the first non-empty string value among keys.
func (r RawRecord) Text(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				return t
			}
		case json.Number:
			return t.String()
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		case int64:
			return strconv.FormatInt(t, 10)
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

// Decimal returns the first value among keys convertible to a non-zero
// decimal. Zero values are skipped so that explicit-field-then-derived
// fallback chains work the way the venue payloads require.
func (r RawRecord) Decimal(keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		d, ok := toDecimal(v)
		if ok && !d.IsZero() {
			return d
		}
	}
	return decimal.Zero
}

// DecimalOrZero converts the first present key, keeping explicit zeros.
func (r RawRecord) DecimalOrZero(keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if d, ok := toDecimal(v); ok {
			return d
		}
	}
	return decimal.Zero
}

// Bool reports the first key interpretable as a boolean. The second return
// is false when no key resolves.
func (r RawRecord) Bool(keys ...string) (bool, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "1", "true":
				return true, true
			case "0", "false":
				return false, true
			}
		case float64:
			return t != 0, true
		case int:
			return t != 0, true
		}
	}
	return false, false
}

// Child returns a nested record stored under key.
func (r RawRecord) Child(key string) (RawRecord, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case RawRecord:
		return t, true
	case map[string]any:
		return RawRecord(t), true
	}
	return nil, false
}

// Int returns the first key convertible to int64.
func (r RawRecord) Int(keys ...string) (int64, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case int:
			return int64(t), true
		case int64:
			return t, true
		case float64:
			return int64(t), true
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return n, true
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}
