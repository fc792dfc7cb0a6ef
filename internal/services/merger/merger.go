// Package merger removes duplicate rows arising from overlapping sources
// and builds the unified chronological event set.
package merger

import (
	"fmt"
	"sort"

	"github.com/vadiminshakov/txtally/internal/domain"
)

// dedupKeep keeps the last occurrence of every key, preserving each kept
// row's original position. A later fetch of the same logical event is
// assumed more complete than an earlier partial one.
func dedupKeep[T any](rows []T, key func(T) string) []T {
	lastIndex := make(map[string]int, len(rows))
	for i, row := range rows {
		lastIndex[key(row)] = i
	}

	kept := make([]T, 0, len(lastIndex))
	for i, row := range rows {
		if lastIndex[key(row)] == i {
			kept = append(kept, row)
		}
	}
	return kept
}

// Trades deduplicates and chronologically sorts fills from all sources.
func Trades(rows []domain.Trade) []domain.Trade {
	out := dedupKeep(rows, func(t domain.Trade) string {
		return fmt.Sprintf("%d|%s|%s|%s|%s|%s",
			t.Timestamp.UnixNano(), t.Side, t.Market, t.Size.String(), t.Price.String(), t.TxHash)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Transfers deduplicates and chronologically sorts transfer rows.
func Transfers(rows []domain.Transfer) []domain.Transfer {
	out := dedupKeep(rows, func(t domain.Transfer) string {
		return fmt.Sprintf("%d|%s|%s|%s|%s",
			t.Timestamp.UnixNano(), t.Type, t.Asset, t.AmountQuote.String(), t.TxHash)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Balances deduplicates and chronologically sorts balance snapshots.
func Balances(rows []domain.BalanceSnapshot) []domain.BalanceSnapshot {
	out := dedupKeep(rows, func(b domain.BalanceSnapshot) string {
		return fmt.Sprintf("%d|%s|%s|%s",
			b.Timestamp.UnixNano(), b.TotalAssetValueQuote.String(), b.CollateralQuote.String(), b.Source)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Airdrops deduplicates and chronologically sorts airdrop rows.
func Airdrops(rows []domain.Airdrop) []domain.Airdrop {
	out := dedupKeep(rows, func(a domain.Airdrop) string {
		return fmt.Sprintf("%d|%s|%s|%s|%s",
			a.Timestamp.UnixNano(), a.Asset, a.Quantity.String(), a.Type, a.Source)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Unify merges the deduplicated tables into one canonical event set in
// non-decreasing timestamp order. Rows with equal timestamps retain their
// relative insertion order (trades, then transfers, balances, airdrops).
func Unify(
	trades []domain.Trade,
	transfers []domain.Transfer,
	balances []domain.BalanceSnapshot,
	airdrops []domain.Airdrop,
) []domain.CanonicalEvent {
	events := make([]domain.CanonicalEvent, 0, len(trades)+len(transfers)+len(balances)+len(airdrops))

	for _, t := range trades {
		events = append(events, tradeEvent(t))
	}
	for _, tr := range transfers {
		events = append(events, domain.CanonicalEvent{
			Timestamp:     tr.Timestamp,
			Group:         domain.GroupTransfer,
			Subtype:       tr.Type,
			Asset:         tr.Asset,
			Quantity:      tr.AmountQuote,
			NotionalQuote: tr.AmountQuote,
			FeeQuote:      tr.FeeQuote,
			TxHash:        tr.TxHash,
			Source:        tr.Source,
			Raw:           tr.Raw,
		})
	}
	for _, b := range balances {
		events = append(events, domain.CanonicalEvent{
			Timestamp:        b.Timestamp,
			Group:            domain.GroupBalanceSnapshot,
			Subtype:          domain.SubtypeSnapshot,
			NotionalQuote:    b.TotalAssetValueQuote.Abs(),
			RealizedPnLQuote: b.RealizedPnLQuote,
			Source:           b.Source,
			Raw:              b.Raw,
		})
	}
	for _, a := range airdrops {
		events = append(events, domain.CanonicalEvent{
			Timestamp: a.Timestamp,
			Group:     domain.GroupAirdrop,
			Subtype:   a.Type,
			Asset:     a.Asset,
			Quantity:  a.Quantity.Abs(),
			Source:    a.Source,
			Raw:       a.Raw,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func tradeEvent(t domain.Trade) domain.CanonicalEvent {
	subtype := domain.SubtypeUnknown
	signed := t.FundingQuote.Sub(t.FeeQuote)
	switch {
	case t.Liquidation:
		subtype = domain.SubtypeLiquidation
	case t.Side == domain.SideBuy:
		subtype = domain.SubtypeBuy
	case t.Side == domain.SideSell:
		subtype = domain.SubtypeSell
	}
	switch t.Side {
	case domain.SideBuy:
		signed = signed.Sub(t.NotionalQuote)
	case domain.SideSell:
		signed = signed.Add(t.NotionalQuote)
	}

	return domain.CanonicalEvent{
		Timestamp:        t.Timestamp,
		Group:            domain.GroupTrade,
		Subtype:          subtype,
		Side:             t.Side,
		Instrument:       t.Market,
		Quantity:         t.Size,
		Price:            t.Price,
		NotionalQuote:    t.NotionalQuote,
		FeeQuote:         t.FeeQuote,
		FundingQuote:     t.FundingQuote,
		RealizedPnLQuote: t.RealizedPnL,
		SignedQuote:      signed,
		TxHash:           t.TxHash,
		Source:           t.Source,
		Raw:              t.Raw,
	}
}
