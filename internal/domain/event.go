package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventGroup is the coarse classification of a timeline entry.
type EventGroup string

const (
	GroupTrade           EventGroup = "trade"
	GroupTransfer        EventGroup = "transfer"
	GroupBalanceSnapshot EventGroup = "balance_snapshot"
	GroupAirdrop         EventGroup = "airdrop"
)

// EventSubtype refines the group.
type EventSubtype string

const (
	SubtypeBuy           EventSubtype = "buy"
	SubtypeSell          EventSubtype = "sell"
	SubtypeLiquidation   EventSubtype = "liquidation"
	SubtypeDeposit       EventSubtype = "deposit"
	SubtypeWithdraw      EventSubtype = "withdraw"
	SubtypeTransfer      EventSubtype = "transfer"
	SubtypeAirdrop       EventSubtype = "airdrop"
	SubtypeTokenTransfer EventSubtype = "token_transfer"
	SubtypeSnapshot      EventSubtype = "snapshot"
	SubtypeUnknown       EventSubtype = "unknown"
)

// Side is the resolved direction of a fill.
type Side string

const (
	SideBuy     Side = "buy"
	SideSell    Side = "sell"
	SideUnknown Side = "unknown"
)

// CanonicalEvent is one row of the unified timeline. Quantity and
// NotionalQuote are non-negative; direction lives in Subtype and Side.
type CanonicalEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	Group     EventGroup   `json:"event_group"`
	Subtype   EventSubtype `json:"event_subtype"`
	// Side keeps the fill direction even when Subtype reports the
	// liquidation classification instead.
	Side             Side            `json:"side,omitempty"`
	Instrument       string          `json:"instrument,omitempty"`
	Asset            string          `json:"asset,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	NotionalQuote    decimal.Decimal `json:"notional_quote"`
	FeeQuote         decimal.Decimal `json:"fee_quote"`
	FundingQuote     decimal.Decimal `json:"funding_quote"`
	RealizedPnLQuote decimal.Decimal `json:"realized_pnl_quote"`
	// SignedQuote is the trading cashflow of the event: buys negative,
	// sells positive, minus fees, plus funding. Zero for non-trade rows.
	SignedQuote decimal.Decimal `json:"signed_quote_value"`
	TxHash      string          `json:"tx_hash,omitempty"`
	Source      string          `json:"source"`
	Raw         RawRecord       `json:"-"`
}
