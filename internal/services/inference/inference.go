// Package inference estimates the unobserved beginning equity of an
// account from balance/trade/transfer cross-checks.
package inference

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/txtally/internal/domain"
)

// InferredDepositTxHash marks the synthetic deposit row injected when the
// observed history misses the initial capital.
const InferredDepositTxHash = "inferred_initial_deposit"

// ExposureProxy walks the unified table's signed quote value in
// chronological order and returns the deepest cumulative deficit,
// clamped at zero. This is a lower bound on the capital the account must
// have started with to fund its trading cashflow.
func ExposureProxy(events []domain.CanonicalEvent) decimal.Decimal {
	running := decimal.Zero
	lowest := decimal.Zero
	for _, e := range events {
		running = running.Add(e.SignedQuote)
		if running.LessThan(lowest) {
			lowest = running
		}
	}
	return decimal.Zero.Sub(lowest)
}

// InferInitialCapital estimates beginning equity. The reconciliation
// estimate (ending equity minus net deposits minus net PnL components) is
// preferred; a non-physical negative result falls back to the exposure
// proxy with downgraded confidence.
func InferInitialCapital(
	events []domain.CanonicalEvent,
	endingEquity decimal.Decimal,
	netDeposits decimal.Decimal,
	netPnLComponents decimal.Decimal,
) domain.InitialCapitalInference {
	var caveats []string

	estimate := endingEquity.Sub(netDeposits).Sub(netPnLComponents)
	method := domain.MethodReconciliation
	confidence := domain.ConfidenceMedium

	proxy := ExposureProxy(events)

	if estimate.IsNegative() {
		caveats = append(caveats, "Reconciliation produced negative beginning equity; replaced with max-exposure proxy.")
		estimate = proxy
		method = domain.MethodMaxExposureProxy
		confidence = domain.ConfidenceLow
	}

	if netDeposits.IsZero() {
		caveats = append(caveats, "No explicit deposits/withdrawals found; initial capital estimate has high uncertainty.")
		if proxy.GreaterThan(estimate) {
			estimate = proxy
			method = domain.MethodMaxExposureProxy
			confidence = domain.ConfidenceLow
		}
	}

	if proxy.IsPositive() {
		caveats = append(caveats, fmt.Sprintf("Max signed-quote exposure proxy observed: %s.", proxy.StringFixed(4)))
	}

	return domain.InitialCapitalInference{
		EstimatedBeginningEquity: estimate,
		Method:                   method,
		Confidence:               confidence,
		Caveats:                  caveats,
		ExposureProxy:            proxy,
	}
}

// EarliestTimestamp returns the earliest instant observed across the three
// source tables, or false when every table is empty.
func EarliestTimestamp(
	transfers []domain.Transfer,
	trades []domain.Trade,
	balances []domain.BalanceSnapshot,
) (time.Time, bool) {
	var earliest time.Time
	found := false

	consider := func(ts time.Time) {
		if ts.IsZero() {
			return
		}
		if !found || ts.Before(earliest) {
			earliest = ts
			found = true
		}
	}

	for _, t := range transfers {
		consider(t.Timestamp)
	}
	for _, t := range trades {
		consider(t.Timestamp)
	}
	for _, b := range balances {
		consider(b.Timestamp)
	}
	return earliest, found
}

// MaterializeInitialDeposit prepends a synthetic deposit carrying the
// inferred beginning equity, timestamped one second before the earliest
// known event so it sorts first. Returns the transfers unchanged when
// deposits were already observed, the estimate is non-positive, or no
// event supplies an anchor timestamp.
func MaterializeInitialDeposit(
	transfers []domain.Transfer,
	trades []domain.Trade,
	balances []domain.BalanceSnapshot,
	inferred domain.InitialCapitalInference,
) ([]domain.Transfer, bool) {
	deposits := decimal.Zero
	for _, t := range transfers {
		if t.Type == domain.SubtypeDeposit {
			deposits = deposits.Add(t.AmountQuote)
		}
	}
	if deposits.IsPositive() || !inferred.EstimatedBeginningEquity.IsPositive() {
		return transfers, false
	}

	earliest, ok := EarliestTimestamp(transfers, trades, balances)
	if !ok {
		return transfers, false
	}

	synthetic := domain.Transfer{
		Timestamp:   earliest.Add(-time.Second),
		Type:        domain.SubtypeDeposit,
		Asset:       "USDC",
		AmountQuote: inferred.EstimatedBeginningEquity,
		FeeQuote:    decimal.Zero,
		TxHash:      InferredDepositTxHash,
		Source:      "inference",
		Raw: domain.RawRecord{
			"reason":          "deposit history missing; inferred from balance/trade reconciliation",
			"method":          inferred.Method,
			"confidence":      inferred.Confidence,
			"exposure_proxy":  inferred.ExposureProxy.String(),
			"estimated_value": inferred.EstimatedBeginningEquity.String(),
		},
	}

	out := make([]domain.Transfer, 0, len(transfers)+1)
	out = append(out, synthetic)
	out = append(out, transfers...)
	return out, true
}

// VerifyDeposits computes the deposit verification summary including the
// approximate-target band check.
func VerifyDeposits(
	transfers []domain.Transfer,
	trades []domain.Trade,
	balances []domain.BalanceSnapshot,
	approxTarget decimal.Decimal,
	tolerance decimal.Decimal,
) domain.DepositVerification {
	deposits := decimal.Zero
	withdrawals := decimal.Zero
	for _, t := range transfers {
		switch t.Type {
		case domain.SubtypeDeposit:
			deposits = deposits.Add(t.AmountQuote)
		case domain.SubtypeWithdraw:
			withdrawals = withdrawals.Add(t.AmountQuote)
		}
	}

	earliest, _ := EarliestTimestamp(transfers, trades, balances)

	low := approxTarget.Sub(tolerance)
	high := approxTarget.Add(tolerance)

	return domain.DepositVerification{
		TotalDeposits:     deposits,
		TotalWithdrawals:  withdrawals,
		NetDeposits:       deposits.Sub(withdrawals),
		EarliestTimestamp: earliest,
		HasApproxTarget:   deposits.GreaterThanOrEqual(low) && deposits.LessThanOrEqual(high),
		ApproxBandLow:     low,
		ApproxBandHigh:    high,
	}
}
