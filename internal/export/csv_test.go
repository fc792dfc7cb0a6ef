package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/txtally/internal/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteTimelineCSV(t *testing.T) {
	events := []domain.CanonicalEvent{
		{
			Timestamp:     time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC),
			Group:         domain.GroupTrade,
			Subtype:       domain.SubtypeSell,
			Instrument:    "LIT-USDC",
			Quantity:      decimal.NewFromInt(100),
			Price:         decimal.NewFromInt(2),
			NotionalQuote: decimal.NewFromInt(200),
			FeeQuote:      decimal.NewFromInt(1),
			SignedQuote:   decimal.NewFromInt(199),
			TxHash:        "0xabc",
			Source:        "lighter",
		},
	}

	path := filepath.Join(t.TempDir(), "timeline.csv")
	require.NoError(t, WriteTimelineCSV(path, events, decimal.NewFromInt(1350)))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, timelineHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "2024-05-01-12-30-15", row[0])
	assert.Equal(t, "lighter", row[1])
	assert.Equal(t, "trade", row[2])
	assert.Equal(t, "sell", row[3])
	assert.Equal(t, "LIT-USDC", row[4])
	// value_fx = 199 * 1350
	assert.Equal(t, "268650.0000", row[12])
	assert.Equal(t, "1350", row[13])
	assert.Equal(t, "0xabc", row[14])
}

func TestWriteTimelineCSVZeroFxDefaultsToOne(t *testing.T) {
	events := []domain.CanonicalEvent{{
		Timestamp:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Group:       domain.GroupTransfer,
		Subtype:     domain.SubtypeDeposit,
		SignedQuote: decimal.Zero,
		Source:      "lighter",
	}}

	path := filepath.Join(t.TempDir(), "timeline.csv")
	require.NoError(t, WriteTimelineCSV(path, events, decimal.Zero))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[1][13])
}

func TestWriteBreakdownCSV(t *testing.T) {
	rows := []domain.BreakdownRow{
		{
			Bucket:         "2024-05-01",
			NetSignedQuote: decimal.NewFromInt(148),
			TradeNotional:  decimal.NewFromInt(150),
			Fees:           decimal.NewFromInt(2),
			Events:         2,
		},
	}

	path := filepath.Join(t.TempDir(), "daily.csv")
	require.NoError(t, WriteBreakdownCSV(path, rows))

	got := readCSV(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-05-01", got[1][0])
	assert.Equal(t, "148", got[1][1])
	assert.Equal(t, "2", got[1][6])
}

func TestWriteLedgerCSV(t *testing.T) {
	ledger := []domain.LedgerLine{
		{Label: "BeginningEquity(estimated)", Value: decimal.NewFromInt(600)},
		{Label: "=EndingEquity", Value: decimal.NewFromInt(760)},
	}

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, WriteLedgerCSV(path, ledger))

	got := readCSV(t, path)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"BeginningEquity(estimated)", "600.0000"}, got[1])
	assert.Equal(t, []string{"=EndingEquity", "760.0000"}, got[2])
}
