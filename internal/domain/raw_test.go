package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawRecordText(t *testing.T) {
	r := RawRecord{
		"empty":  "  ",
		"sym":    "BTC-USDC",
		"num":    float64(12.5),
		"n":      json.Number("99"),
		"truthy": true,
	}

	assert.Equal(t, "BTC-USDC", r.Text("missing", "empty", "sym"))
	assert.Equal(t, "12.5", r.Text("num"))
	assert.Equal(t, "99", r.Text("n"))
	assert.Equal(t, "true", r.Text("truthy"))
	assert.Equal(t, "", r.Text("missing", "empty"))
}

func TestRawRecordDecimalSkipsZeros(t *testing.T) {
	r := RawRecord{
		"fee":       "0",
		"total_fee": float64(1.25),
		"bad":       "not-a-number",
	}

	// Decimal walks past explicit zeros so derived fallbacks apply.
	assert.True(t, r.Decimal("fee", "total_fee").Equal(decimal.NewFromFloat(1.25)))
	assert.True(t, r.Decimal("bad", "missing").IsZero())

	// DecimalOrZero keeps the explicit zero.
	assert.True(t, r.DecimalOrZero("fee", "total_fee").IsZero())
}

func TestRawRecordBool(t *testing.T) {
	r := RawRecord{"maker": "1", "ask": false, "count": float64(0)}

	v, ok := r.Bool("maker")
	require.True(t, ok)
	assert.True(t, v)

	v, ok = r.Bool("ask")
	require.True(t, ok)
	assert.False(t, v)

	v, ok = r.Bool("count")
	require.True(t, ok)
	assert.False(t, v)

	_, ok = r.Bool("missing")
	assert.False(t, ok)
}

func TestRawRecordChildAndInt(t *testing.T) {
	r := RawRecord{
		"data":      map[string]any{"market_id": float64(7)},
		"index_str": "42",
	}

	child, ok := r.Child("data")
	require.True(t, ok)

	mid, ok := child.Int("market_id")
	require.True(t, ok)
	assert.Equal(t, int64(7), mid)

	idx, ok := r.Int("index_str")
	require.True(t, ok)
	assert.Equal(t, int64(42), idx)

	_, ok = r.Child("index_str")
	assert.False(t, ok)
}
