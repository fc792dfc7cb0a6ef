// Package export renders a finished run as CSV files, a diagnostics
// JSON document, and a styled console report.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/txtally/internal/domain"
)

const timelineTimeLayout = "2006-01-02-15-04-05"

var timelineHeader = []string{
	"timestamp", "source", "event_group", "event_subtype", "instrument",
	"asset", "quantity", "price", "notional_quote", "fee_quote",
	"funding_quote", "signed_quote_value", "value_fx", "fx_rate", "tx_hash",
}

// WriteTimelineCSV writes the unified event timeline. The value_fx
// column is the signed quote value converted at fxRate.
func WriteTimelineCSV(path string, events []domain.CanonicalEvent, fxRate decimal.Decimal) error {
	if fxRate.IsZero() {
		fxRate = decimal.NewFromInt(1)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create timeline csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(timelineHeader); err != nil {
		return errors.Wrap(err, "write timeline header")
	}

	for _, e := range events {
		row := []string{
			e.Timestamp.UTC().Format(timelineTimeLayout),
			e.Source,
			string(e.Group),
			string(e.Subtype),
			e.Instrument,
			e.Asset,
			e.Quantity.String(),
			e.Price.String(),
			e.NotionalQuote.String(),
			e.FeeQuote.String(),
			e.FundingQuote.String(),
			e.SignedQuote.String(),
			e.SignedQuote.Mul(fxRate).StringFixed(4),
			fxRate.String(),
			e.TxHash,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "write timeline row")
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "flush timeline csv")
}

// WriteBreakdownCSV writes a daily or monthly aggregation.
func WriteBreakdownCSV(path string, rows []domain.BreakdownRow) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create breakdown csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"bucket", "net_signed_quote", "trade_notional", "fees", "funding", "airdrop_qty", "events"}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write breakdown header")
	}

	for _, r := range rows {
		row := []string{
			r.Bucket,
			r.NetSignedQuote.String(),
			r.TradeNotional.String(),
			r.Fees.String(),
			r.Funding.String(),
			r.AirdropQty.String(),
			strconv.Itoa(r.Events),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "write breakdown row")
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "flush breakdown csv")
}

// WriteLedgerCSV writes the reconciliation waterfall.
func WriteLedgerCSV(path string, ledger []domain.LedgerLine) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create ledger csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"label", "value"}); err != nil {
		return errors.Wrap(err, "write ledger header")
	}
	for _, line := range ledger {
		if err := w.Write([]string{line.Label, line.Value.StringFixed(4)}); err != nil {
			return errors.Wrap(err, "write ledger row")
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "flush ledger csv")
}

// EnsureDir creates the output directory if needed and returns it.
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		dir = "out"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output dir")
	}
	return dir, nil
}

// Path joins the output dir with a file name.
func Path(dir, name string) string {
	return filepath.Join(dir, name)
}
