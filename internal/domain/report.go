package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositVerification is a sanity-check artifact over observed cashflow.
type DepositVerification struct {
	TotalDeposits     decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals  decimal.Decimal `json:"total_withdrawals"`
	NetDeposits       decimal.Decimal `json:"net_deposits"`
	EarliestTimestamp time.Time       `json:"earliest_timestamp"`
	HasApproxTarget   bool            `json:"has_approx_target"`
	ApproxBandLow     decimal.Decimal `json:"approx_band_low"`
	ApproxBandHigh    decimal.Decimal `json:"approx_band_high"`
}

// Inference method names.
const (
	MethodReconciliation   = "reconciliation"
	MethodMaxExposureProxy = "max_exposure_proxy"
)

// Inference confidence grades.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// InitialCapitalInference is the estimated beginning equity with provenance.
type InitialCapitalInference struct {
	EstimatedBeginningEquity decimal.Decimal `json:"estimated_beginning_equity"`
	Method                   string          `json:"method"`
	Confidence               string          `json:"confidence"`
	Caveats                  []string        `json:"caveats"`
	// ExposureProxy is retained for diagnostics regardless of which
	// estimate survived.
	ExposureProxy decimal.Decimal `json:"exposure_proxy"`
}

// ProfitSummary is the top-level profit waterfall. Key names are part of
// the export contract and must not change.
type ProfitSummary struct {
	NetDeposits             decimal.Decimal `json:"net_deposits"`
	RealizedPnL             decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL           decimal.Decimal `json:"unrealized_pnl"`
	FeesPlusFunding         decimal.Decimal `json:"fees_plus_funding"`
	AirdropTokensReceived   decimal.Decimal `json:"airdrop_tokens_received"`
	TokenSoldQty            decimal.Decimal `json:"token_sold_qty"`
	TokenVWAPSellPrice      decimal.Decimal `json:"token_vwap_sell_price"`
	TokenSaleProceeds       decimal.Decimal `json:"token_sale_proceeds"`
	TokenSalesPnL           decimal.Decimal `json:"token_sales_pnl"`
	EndingEquity            decimal.Decimal `json:"ending_equity"`
	BeginningEquityEstimate decimal.Decimal `json:"beginning_equity_estimate"`
	TotalProfit             decimal.Decimal `json:"total_profit"`
}

// Map returns the summary as the contractual key->value mapping.
func (s ProfitSummary) Map() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"net_deposits":              s.NetDeposits,
		"realized_pnl":              s.RealizedPnL,
		"unrealized_pnl":            s.UnrealizedPnL,
		"fees_plus_funding":         s.FeesPlusFunding,
		"airdrop_tokens_received":   s.AirdropTokensReceived,
		"token_sold_qty":            s.TokenSoldQty,
		"token_vwap_sell_price":     s.TokenVWAPSellPrice,
		"token_sale_proceeds":       s.TokenSaleProceeds,
		"token_sales_pnl":           s.TokenSalesPnL,
		"ending_equity":             s.EndingEquity,
		"beginning_equity_estimate": s.BeginningEquityEstimate,
		"total_profit":              s.TotalProfit,
	}
}

// LedgerLine is one ordered entry of the reconciliation waterfall.
type LedgerLine struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// BreakdownRow aggregates unified events for one calendar bucket.
type BreakdownRow struct {
	Bucket         string          `json:"bucket"`
	NetSignedQuote decimal.Decimal `json:"net_signed_quote"`
	TradeNotional  decimal.Decimal `json:"trade_notional"`
	Fees           decimal.Decimal `json:"fees"`
	Funding        decimal.Decimal `json:"funding"`
	AirdropQty     decimal.Decimal `json:"airdrop_qty"`
	Events         int             `json:"events"`
}
