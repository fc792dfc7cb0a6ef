package inference

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/txtally/internal/domain"
)

func signedEvent(sec int64, v string) domain.CanonicalEvent {
	return domain.CanonicalEvent{
		Timestamp:   time.Unix(1714566000+sec, 0).UTC(),
		Group:       domain.GroupTrade,
		SignedQuote: decimal.RequireFromString(v),
	}
}

func TestExposureProxy(t *testing.T) {
	t.Run("deepest deficit", func(t *testing.T) {
		events := []domain.CanonicalEvent{
			signedEvent(1, "-100"),
			signedEvent(2, "-250"),
			signedEvent(3, "400"),
			signedEvent(4, "-50"),
		}
		// running: -100, -350, 50, 0 -> deepest -350
		assert.Equal(t, "350", ExposureProxy(events).String())
	})

	t.Run("never negative flow clamps to zero", func(t *testing.T) {
		events := []domain.CanonicalEvent{
			signedEvent(1, "10"),
			signedEvent(2, "20"),
		}
		assert.True(t, ExposureProxy(events).IsZero())
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, ExposureProxy(nil).IsZero())
	})
}

func TestInferInitialCapital(t *testing.T) {
	t.Run("reconciliation estimate", func(t *testing.T) {
		got := InferInitialCapital(nil,
			decimal.NewFromInt(1000), // ending
			decimal.NewFromInt(600),  // net deposits
			decimal.NewFromInt(150),  // net pnl components
		)
		assert.Equal(t, "250", got.EstimatedBeginningEquity.String())
		assert.Equal(t, domain.MethodReconciliation, got.Method)
		assert.Equal(t, domain.ConfidenceMedium, got.Confidence)
		assert.Empty(t, got.Caveats)
	})

	t.Run("negative estimate falls back to proxy", func(t *testing.T) {
		events := []domain.CanonicalEvent{signedEvent(1, "-300"), signedEvent(2, "280")}
		got := InferInitialCapital(events,
			decimal.NewFromInt(100),
			decimal.NewFromInt(600),
			decimal.NewFromInt(0),
		)
		assert.Equal(t, "300", got.EstimatedBeginningEquity.String())
		assert.Equal(t, domain.MethodMaxExposureProxy, got.Method)
		assert.Equal(t, domain.ConfidenceLow, got.Confidence)
		require.NotEmpty(t, got.Caveats)
		assert.Equal(t,
			"Reconciliation produced negative beginning equity; replaced with max-exposure proxy.",
			got.Caveats[0])
	})

	t.Run("no deposits adds uncertainty caveat", func(t *testing.T) {
		got := InferInitialCapital(nil,
			decimal.NewFromInt(500),
			decimal.Zero,
			decimal.NewFromInt(100),
		)
		require.NotEmpty(t, got.Caveats)
		assert.Contains(t, got.Caveats,
			"No explicit deposits/withdrawals found; initial capital estimate has high uncertainty.")
	})

	t.Run("no deposits and larger proxy wins", func(t *testing.T) {
		events := []domain.CanonicalEvent{signedEvent(1, "-900")}
		got := InferInitialCapital(events,
			decimal.NewFromInt(500),
			decimal.Zero,
			decimal.NewFromInt(100),
		)
		assert.Equal(t, "900", got.EstimatedBeginningEquity.String())
		assert.Equal(t, domain.MethodMaxExposureProxy, got.Method)
		assert.Equal(t, domain.ConfidenceLow, got.Confidence)
		assert.Contains(t, got.Caveats, "Max signed-quote exposure proxy observed: 900.0000.")
	})

	t.Run("proxy caveat present when proxy positive", func(t *testing.T) {
		events := []domain.CanonicalEvent{signedEvent(1, "-10"), signedEvent(2, "30")}
		got := InferInitialCapital(events,
			decimal.NewFromInt(1000),
			decimal.NewFromInt(600),
			decimal.NewFromInt(100),
		)
		assert.Equal(t, domain.MethodReconciliation, got.Method)
		assert.Contains(t, got.Caveats, "Max signed-quote exposure proxy observed: 10.0000.")
		assert.Equal(t, "10", got.ExposureProxy.String())
	})
}

func TestMaterializeInitialDeposit(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	trades := []domain.Trade{{Timestamp: base}}

	t.Run("injects before earliest event", func(t *testing.T) {
		inferred := domain.InitialCapitalInference{
			EstimatedBeginningEquity: decimal.NewFromInt(600),
			Method:                   domain.MethodReconciliation,
			Confidence:               domain.ConfidenceMedium,
		}
		out, injected := MaterializeInitialDeposit(nil, trades, nil, inferred)
		require.True(t, injected)
		require.Len(t, out, 1)
		assert.Equal(t, InferredDepositTxHash, out[0].TxHash)
		assert.Equal(t, "inference", out[0].Source)
		assert.Equal(t, "USDC", out[0].Asset)
		assert.Equal(t, base.Add(-time.Second), out[0].Timestamp)
		assert.Equal(t, "600", out[0].AmountQuote.String())
	})

	t.Run("no injection when deposits observed", func(t *testing.T) {
		transfers := []domain.Transfer{
			{Timestamp: base, Type: domain.SubtypeDeposit, AmountQuote: decimal.NewFromInt(600)},
		}
		out, injected := MaterializeInitialDeposit(transfers, trades, nil, domain.InitialCapitalInference{
			EstimatedBeginningEquity: decimal.NewFromInt(600),
		})
		assert.False(t, injected)
		assert.Len(t, out, 1)
	})

	t.Run("no injection for non-positive estimate", func(t *testing.T) {
		_, injected := MaterializeInitialDeposit(nil, trades, nil, domain.InitialCapitalInference{
			EstimatedBeginningEquity: decimal.Zero,
		})
		assert.False(t, injected)
	})

	t.Run("no injection without an anchor timestamp", func(t *testing.T) {
		_, injected := MaterializeInitialDeposit(nil, nil, nil, domain.InitialCapitalInference{
			EstimatedBeginningEquity: decimal.NewFromInt(600),
		})
		assert.False(t, injected)
	})
}

func TestVerifyDeposits(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	transfers := []domain.Transfer{
		{Timestamp: base.Add(time.Hour), Type: domain.SubtypeDeposit, AmountQuote: decimal.NewFromInt(620)},
		{Timestamp: base.Add(2 * time.Hour), Type: domain.SubtypeWithdraw, AmountQuote: decimal.NewFromInt(100)},
		{Timestamp: base, Type: domain.SubtypeTransfer, AmountQuote: decimal.NewFromInt(5)},
	}

	v := VerifyDeposits(transfers, nil, nil, decimal.NewFromInt(600), decimal.NewFromInt(75))
	assert.Equal(t, "620", v.TotalDeposits.String())
	assert.Equal(t, "100", v.TotalWithdrawals.String())
	assert.Equal(t, "520", v.NetDeposits.String())
	assert.Equal(t, base, v.EarliestTimestamp)
	assert.True(t, v.HasApproxTarget)
	assert.Equal(t, "525", v.ApproxBandLow.String())
	assert.Equal(t, "675", v.ApproxBandHigh.String())

	t.Run("outside band", func(t *testing.T) {
		v := VerifyDeposits([]domain.Transfer{
			{Timestamp: base, Type: domain.SubtypeDeposit, AmountQuote: decimal.NewFromInt(100)},
		}, nil, nil, decimal.NewFromInt(600), decimal.NewFromInt(75))
		assert.False(t, v.HasApproxTarget)
	})
}
