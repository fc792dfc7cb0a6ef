package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a normalized fill or liquidation.
type Trade struct {
	Timestamp     time.Time
	Side          Side
	Market        string
	Price         decimal.Decimal
	Size          decimal.Decimal
	NotionalQuote decimal.Decimal
	FeeQuote      decimal.Decimal
	FundingQuote  decimal.Decimal
	RealizedPnL   decimal.Decimal
	Liquidation   bool
	TxHash        string
	Source        string
	Raw           RawRecord
}

// Transfer is a normalized deposit, withdrawal or internal transfer.
type Transfer struct {
	Timestamp   time.Time
	Type        EventSubtype
	Asset       string
	AmountQuote decimal.Decimal
	FeeQuote    decimal.Decimal
	TxHash      string
	Source      string
	Raw         RawRecord
}

// BalanceSnapshot is a point-in-time account state.
type BalanceSnapshot struct {
	Timestamp             time.Time
	CollateralQuote       decimal.Decimal
	AvailableBalanceQuote decimal.Decimal
	TotalAssetValueQuote  decimal.Decimal
	RealizedPnLQuote      decimal.Decimal
	UnrealizedPnLQuote    decimal.Decimal
	Source                string
	Raw                   RawRecord
}

// Airdrop is a reward-token receipt hint.
type Airdrop struct {
	Timestamp time.Time
	Asset     string
	Quantity  decimal.Decimal
	Type      EventSubtype
	Source    string
	Raw       RawRecord
}

// EndpointOutcome reports a single fetch attempt. Failures travel as data,
// not errors, so the coverage guard can reason over all of them at once.
type EndpointOutcome struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Records int    `json:"records"`
	Error   string `json:"error"`
}
