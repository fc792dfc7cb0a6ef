// Package normalizer converts raw per-source records into the canonical
// tables. A record either normalizes into exactly one row or is dropped;
// normalization never fails the batch.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/txtally/internal/domain"
)

const bpsDivisor = 10000

// DefaultTokenKeywords mark the venue reward token.
var DefaultTokenKeywords = []string{"LIT", "LIGHTER"}

// Normalizer holds the per-run context raw records are resolved against.
type Normalizer struct {
	accountIndex  string
	marketMap     map[int64]string
	tokenKeywords []string
}

// New creates a Normalizer for the given local account index and
// market-id to symbol map.
func New(accountIndex int64, marketMap map[int64]string, tokenKeywords []string) *Normalizer {
	if len(tokenKeywords) == 0 {
		tokenKeywords = DefaultTokenKeywords
	}
	return &Normalizer{
		accountIndex:  fmt.Sprintf("%d", accountIndex),
		marketMap:     marketMap,
		tokenKeywords: tokenKeywords,
	}
}

// ResolveSide resolves a fill direction. Explicit side fields win; failing
// those the taker/maker relationship is used; failing that the side is
// unknown. Never errors.
func (n *Normalizer) ResolveSide(raw domain.RawRecord) domain.Side {
	switch strings.ToLower(raw.Text("side", "direction", "trade_side")) {
	case "b", "bid", "buy":
		return domain.SideBuy
	case "s", "ask", "sell":
		return domain.SideSell
	}

	isTakerAsk, ok := raw.Bool("is_taker_ask")
	if !ok {
		return domain.SideUnknown
	}

	takerSide := domain.SideBuy
	if isTakerAsk {
		takerSide = domain.SideSell
	}

	takerIdx := raw.Text("taker_account_index")
	makerIdx := raw.Text("maker_account_index")

	if takerIdx != "" && takerIdx == n.accountIndex {
		return takerSide
	}
	if makerIdx != "" && makerIdx == n.accountIndex {
		// maker fills the taker's counter order
		if takerSide == domain.SideSell {
			return domain.SideBuy
		}
		return domain.SideSell
	}
	return takerSide
}

// isMaker reports whether the local account sat on the maker side.
func (n *Normalizer) isMaker(raw domain.RawRecord) bool {
	makerIdx := raw.Text("maker_account_index")
	return makerIdx != "" && makerIdx == n.accountIndex
}

func (n *Normalizer) resolveMarket(raw domain.RawRecord) string {
	if market := raw.Text("symbol", "market", "pair"); market != "" {
		return market
	}
	if id, ok := raw.Int("market_index", "market_id"); ok {
		if symbol, found := n.marketMap[id]; found && symbol != "" {
			return symbol
		}
		return fmt.Sprintf("market_%d", id)
	}
	return ""
}

// Trade normalizes one raw fill. Returns false when the timestamp cannot
// be parsed, in which case the record is dropped.
func (n *Normalizer) Trade(raw domain.RawRecord, source string) (domain.Trade, bool) {
	tsValue, _ := raw.First("time", "timestamp", "created_at", "executed_at", "updated_at")
	ts, ok := ParseTimestamp(tsValue)
	if !ok {
		return domain.Trade{}, false
	}

	size := raw.Decimal("size", "quantity", "filled_size").Abs()
	price := raw.DecimalOrZero("price")

	notional := raw.Decimal("notional", "quote_qty", "usd_amount")
	if notional.IsZero() && !size.IsZero() && !price.IsZero() {
		notional = size.Mul(price)
	}
	notional = notional.Abs()

	side := n.ResolveSide(raw)

	fee := raw.Decimal("fee", "fee_usd").Abs()
	if fee.IsZero() && !notional.IsZero() {
		bps := raw.DecimalOrZero("taker_fee")
		if n.isMaker(raw) {
			bps = raw.DecimalOrZero("maker_fee")
		}
		if !bps.IsZero() {
			fee = notional.Mul(bps).Div(decimal.NewFromInt(bpsDivisor))
		}
	}

	txType := strings.ToLower(raw.Text("tx_type", "trade_type", "type"))
	liquidation := strings.Contains(txType, "liq") || txType == "liquidation"

	return domain.Trade{
		Timestamp:     ts,
		Side:          side,
		Market:        n.resolveMarket(raw),
		Price:         price,
		Size:          size,
		NotionalQuote: notional,
		FeeQuote:      fee,
		FundingQuote:  raw.DecimalOrZero("funding", "funding_fee", "funding_payment"),
		RealizedPnL:   raw.DecimalOrZero("realized_pnl", "realizedPnl", "pnl"),
		Liquidation:   liquidation,
		TxHash:        raw.Text("hash", "tx_hash", "trade_id", "id"),
		Source:        source,
		Raw:           raw,
	}, true
}

// Transfer normalizes one raw transfer record. The fallback type applies
// when the type string classifies as none of deposit/withdraw/transfer.
func (n *Normalizer) Transfer(raw domain.RawRecord, source string, fallback domain.EventSubtype) (domain.Transfer, bool) {
	tsValue, _ := raw.First("time", "timestamp", "created_at", "updated_at", "executed_at")
	ts, ok := ParseTimestamp(tsValue)
	if !ok {
		return domain.Transfer{}, false
	}

	return domain.Transfer{
		Timestamp:   ts,
		Type:        classifyTransfer(raw.Text("tx_type", "type"), fallback),
		Asset:       pickAsset(raw),
		AmountQuote: pickAmount(raw).Abs(),
		FeeQuote:    raw.Decimal("fee", "usdc_fee").Abs(),
		TxHash:      raw.Text("hash", "tx_hash", "id"),
		Source:      source,
		Raw:         raw,
	}, true
}

func classifyTransfer(txType string, fallback domain.EventSubtype) domain.EventSubtype {
	lower := strings.ToLower(txType)
	switch {
	case strings.Contains(lower, "deposit"):
		return domain.SubtypeDeposit
	case strings.Contains(lower, "withdraw"):
		return domain.SubtypeWithdraw
	case strings.Contains(lower, "transfer"):
		return domain.SubtypeTransfer
	}
	return fallback
}

// pubdataBlocks are the explorer payload envelopes carrying amounts.
var pubdataBlocks = []string{
	"l1_deposit_pubdata_v2",
	"l1_withdraw_pubdata_v2",
	"l2_transfer_pubdata_v2",
}

func pickAmount(raw domain.RawRecord) decimal.Decimal {
	if v := raw.Decimal("amount", "accepted_amount", "usdc_amount", "value"); !v.IsZero() {
		return v
	}
	if pub, ok := raw.Child("pubdata"); ok {
		for _, key := range pubdataBlocks {
			if block, found := pub.Child(key); found {
				if v := block.Decimal("accepted_amount", "amount"); !v.IsZero() {
					return v
				}
			}
		}
	}
	return decimal.Zero
}

func pickAsset(raw domain.RawRecord) string {
	if asset := raw.Text("asset", "asset_symbol", "asset_index", "token"); asset != "" {
		return asset
	}
	if pub, ok := raw.Child("pubdata"); ok {
		for _, key := range pubdataBlocks {
			if block, found := pub.Child(key); found {
				if asset := block.Text("asset_index"); asset != "" {
					return asset
				}
			}
		}
	}
	return "USDC"
}

// Balance normalizes one raw account snapshot. Realized/unrealized PnL is
// summed over open positions when present. A snapshot without a parseable
// timestamp is the current account state, so it is stamped with the fetch
// time instead of being dropped.
func (n *Normalizer) Balance(raw domain.RawRecord, source string) domain.BalanceSnapshot {
	tsValue, _ := raw.First("updated_at", "timestamp", "time")
	ts, ok := ParseTimestamp(tsValue)
	if !ok {
		ts = time.Now().UTC()
	}

	realized := decimal.Zero
	unrealized := decimal.Zero
	if positions, found := raw["positions"]; found {
		if list, isList := positions.([]any); isList {
			for _, p := range list {
				pos, isMap := p.(map[string]any)
				if !isMap {
					continue
				}
				pr := domain.RawRecord(pos)
				realized = realized.Add(pr.DecimalOrZero("realized_pnl", "realizedPnl"))
				unrealized = unrealized.Add(pr.DecimalOrZero("unrealized_pnl", "unrealizedPnl"))
			}
		}
	}

	return domain.BalanceSnapshot{
		Timestamp:             ts,
		CollateralQuote:       raw.DecimalOrZero("collateral"),
		AvailableBalanceQuote: raw.DecimalOrZero("available_balance"),
		TotalAssetValueQuote:  raw.DecimalOrZero("total_asset_value"),
		RealizedPnLQuote:      realized,
		UnrealizedPnLQuote:    unrealized,
		Source:                source,
		Raw:                   raw,
	}
}

// IsRewardToken reports whether the asset symbol is the venue reward token.
func (n *Normalizer) IsRewardToken(asset string) bool {
	upper := strings.ToUpper(asset)
	for _, keyword := range n.tokenKeywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}

// AirdropsFromTransfers derives airdrop rows from reward-token transfers.
// Deposits of the reward token are tentatively airdrops, everything else a
// token transfer.
func (n *Normalizer) AirdropsFromTransfers(transfers []domain.Transfer) []domain.Airdrop {
	var rows []domain.Airdrop
	for _, tr := range transfers {
		if !n.IsRewardToken(tr.Asset) {
			continue
		}
		eventType := domain.SubtypeTokenTransfer
		if tr.Type == domain.SubtypeDeposit {
			eventType = domain.SubtypeAirdrop
		}
		rows = append(rows, domain.Airdrop{
			Timestamp: tr.Timestamp,
			Asset:     tr.Asset,
			Quantity:  tr.AmountQuote,
			Type:      eventType,
			Source:    tr.Source,
			Raw:       tr.Raw,
		})
	}
	return rows
}

// AirdropHint normalizes a raw explorer airdrop hint. Records without a
// reward-token asset or an airdrop-typed transaction are skipped.
func (n *Normalizer) AirdropHint(raw domain.RawRecord, source string) (domain.Airdrop, bool) {
	txType := strings.ToLower(raw.Text("tx_type", "type"))

	asset := ""
	qty := decimal.Zero
	if pub, ok := raw.Child("pubdata"); ok {
		for _, key := range []string{"l1_deposit_pubdata_v2", "l2_transfer_pubdata_v2"} {
			if block, found := pub.Child(key); found {
				asset = block.Text("asset_index")
				qty = block.Decimal("accepted_amount", "amount")
				break
			}
		}
	}
	if asset == "" {
		asset = raw.Text("asset", "token")
	}
	if qty.IsZero() {
		qty = raw.Decimal("quantity", "amount")
	}

	isAirdrop := strings.Contains(txType, "airdrop")
	if (!isAirdrop && !n.IsRewardToken(asset)) || qty.IsZero() {
		return domain.Airdrop{}, false
	}

	tsValue, _ := raw.First("time", "timestamp")
	ts, ok := ParseTimestamp(tsValue)
	if !ok {
		return domain.Airdrop{}, false
	}

	eventType := domain.SubtypeTokenTransfer
	if isAirdrop {
		eventType = domain.SubtypeAirdrop
	}
	if asset == "" {
		asset = "TOKEN"
	}

	return domain.Airdrop{
		Timestamp: ts,
		Asset:     asset,
		Quantity:  qty,
		Type:      eventType,
		Source:    source,
		Raw:       raw,
	}, true
}
