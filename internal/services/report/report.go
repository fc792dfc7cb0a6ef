// Package report builds the profit waterfall, the reconciliation ledger,
// and the period breakdowns from the unified event set.
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/txtally/internal/domain"
	"github.com/vadiminshakov/txtally/internal/services/inference"
)

// Ledger labels are part of the export contract.
const (
	LabelBeginningEquity = "BeginningEquity(estimated)"
	LabelNetDeposits     = "+NetDeposits"
	LabelRealizedPnL     = "+RealizedPnL"
	LabelUnrealizedPnL   = "+UnrealizedPnL"
	LabelTokenSalesPnL   = "+TokenSalesPnL"
	LabelFeesFunding     = "+FeesFunding(net)"
	LabelEndingEquity    = "=EndingEquity"
)

// DefaultTokenKeyword filters reward-token markets.
const DefaultTokenKeyword = "LIT"

// ProfitReport is the full reporter output.
type ProfitReport struct {
	Summary   domain.ProfitSummary
	Inference domain.InitialCapitalInference
	Ledger    []domain.LedgerLine
	Daily     []domain.BreakdownRow
	Monthly   []domain.BreakdownRow
}

// Build computes the profit report from the unified event set and the
// balance history. The latest balance snapshot is ground truth for
// realized/unrealized PnL and ending equity; trade-level realized PnL is
// the fallback when no snapshot exists.
func Build(events []domain.CanonicalEvent, balances []domain.BalanceSnapshot, tokenKeyword string) *ProfitReport {
	if tokenKeyword == "" {
		tokenKeyword = DefaultTokenKeyword
	}

	netDeposits := decimal.Zero
	fees := decimal.Zero
	funding := decimal.Zero
	tradeRealized := decimal.Zero
	airdropQty := decimal.Zero

	for _, e := range events {
		switch e.Group {
		case domain.GroupTransfer:
			switch e.Subtype {
			case domain.SubtypeDeposit:
				netDeposits = netDeposits.Add(e.NotionalQuote)
			case domain.SubtypeWithdraw:
				netDeposits = netDeposits.Sub(e.NotionalQuote)
			}
		case domain.GroupTrade:
			fees = fees.Add(e.FeeQuote)
			funding = funding.Add(e.FundingQuote)
			tradeRealized = tradeRealized.Add(e.RealizedPnLQuote)
		case domain.GroupAirdrop:
			if e.Subtype == domain.SubtypeAirdrop {
				airdropQty = airdropQty.Add(e.Quantity)
			}
		}
	}

	realized := tradeRealized
	unrealized := decimal.Zero
	endingEquity := decimal.Zero
	if len(balances) > 0 {
		latest := balances[len(balances)-1]
		realized = latest.RealizedPnLQuote
		unrealized = latest.UnrealizedPnLQuote
		endingEquity = latest.TotalAssetValueQuote
	}

	feesPlusFunding := fees.Add(funding).Neg()

	tokenQty, tokenProceeds, tokenFees := tokenSales(events, tokenKeyword)
	tokenVWAP := decimal.Zero
	if tokenQty.IsPositive() {
		tokenVWAP = tokenProceeds.Div(tokenQty)
	}
	// Reward tokens are treated as free-acquired: zero cost basis, so the
	// sale PnL is proceeds net of the fees paid on those fills.
	tokenSalesPnL := tokenProceeds.Sub(tokenFees)

	netPnLComponents := realized.Add(unrealized).Add(feesPlusFunding).Add(tokenSalesPnL)
	inferred := inference.InferInitialCapital(events, endingEquity, netDeposits, netPnLComponents)

	totalProfit := endingEquity.Sub(inferred.EstimatedBeginningEquity)

	summary := domain.ProfitSummary{
		NetDeposits:             netDeposits,
		RealizedPnL:             realized,
		UnrealizedPnL:           unrealized,
		FeesPlusFunding:         feesPlusFunding,
		AirdropTokensReceived:   airdropQty,
		TokenSoldQty:            tokenQty,
		TokenVWAPSellPrice:      tokenVWAP,
		TokenSaleProceeds:       tokenProceeds,
		TokenSalesPnL:           tokenSalesPnL,
		EndingEquity:            endingEquity,
		BeginningEquityEstimate: inferred.EstimatedBeginningEquity,
		TotalProfit:             totalProfit,
	}

	return &ProfitReport{
		Summary:   summary,
		Inference: inferred,
		Ledger:    buildLedger(summary),
		Daily:     breakdown(events, bucketDay),
		Monthly:   breakdown(events, bucketMonth),
	}
}

// buildLedger emits the waterfall. The beginning-equity line is derived
// from the other components so the addends always sum to ending equity,
// even when the inference fell back to the exposure proxy; the (possibly
// proxy-based) estimate itself lives in the summary.
func buildLedger(s domain.ProfitSummary) []domain.LedgerLine {
	components := s.NetDeposits.
		Add(s.RealizedPnL).
		Add(s.UnrealizedPnL).
		Add(s.TokenSalesPnL).
		Add(s.FeesPlusFunding)
	beginning := s.EndingEquity.Sub(components)

	return []domain.LedgerLine{
		{Label: LabelBeginningEquity, Value: beginning},
		{Label: LabelNetDeposits, Value: s.NetDeposits},
		{Label: LabelRealizedPnL, Value: s.RealizedPnL},
		{Label: LabelUnrealizedPnL, Value: s.UnrealizedPnL},
		{Label: LabelTokenSalesPnL, Value: s.TokenSalesPnL},
		{Label: LabelFeesFunding, Value: s.FeesPlusFunding},
		{Label: LabelEndingEquity, Value: s.EndingEquity},
	}
}

func tokenSales(events []domain.CanonicalEvent, keyword string) (qty, proceeds, fees decimal.Decimal) {
	qty, proceeds, fees = decimal.Zero, decimal.Zero, decimal.Zero
	upper := strings.ToUpper(keyword)
	for _, e := range events {
		if e.Group != domain.GroupTrade {
			continue
		}
		// liquidation fills keep their direction in Side, and forced
		// sells of the reward token still count as sales
		if e.Subtype != domain.SubtypeSell && e.Side != domain.SideSell {
			continue
		}
		if !strings.Contains(strings.ToUpper(e.Instrument), upper) {
			continue
		}
		qty = qty.Add(e.Quantity)
		proceeds = proceeds.Add(e.NotionalQuote)
		fees = fees.Add(e.FeeQuote)
	}
	return qty, proceeds, fees
}

func bucketDay(e domain.CanonicalEvent) string   { return e.Timestamp.UTC().Format("2006-01-02") }
func bucketMonth(e domain.CanonicalEvent) string { return e.Timestamp.UTC().Format("2006-01") }

func breakdown(events []domain.CanonicalEvent, bucket func(domain.CanonicalEvent) string) []domain.BreakdownRow {
	byBucket := make(map[string]*domain.BreakdownRow)
	for _, e := range events {
		key := bucket(e)
		row, ok := byBucket[key]
		if !ok {
			row = &domain.BreakdownRow{Bucket: key}
			byBucket[key] = row
		}
		row.NetSignedQuote = row.NetSignedQuote.Add(e.SignedQuote)
		if e.Group == domain.GroupTrade {
			row.TradeNotional = row.TradeNotional.Add(e.NotionalQuote)
		}
		row.Fees = row.Fees.Add(e.FeeQuote)
		row.Funding = row.Funding.Add(e.FundingQuote)
		if e.Group == domain.GroupAirdrop {
			row.AirdropQty = row.AirdropQty.Add(e.Quantity)
		}
		row.Events++
	}

	rows := make([]domain.BreakdownRow, 0, len(byBucket))
	for _, row := range byBucket {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Bucket < rows[j].Bucket })
	return rows
}
