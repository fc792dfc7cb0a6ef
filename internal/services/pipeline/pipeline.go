// Package pipeline wires the normalizer, merger, coverage guard,
// inference engine and reporter into the batch run. Each stage takes
// immutable inputs and returns new tables; the whole run is deterministic
// for a fixed snapshot of raw input.
package pipeline

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/txtally/internal/domain"
	"github.com/vadiminshakov/txtally/internal/services/coverage"
	"github.com/vadiminshakov/txtally/internal/services/inference"
	"github.com/vadiminshakov/txtally/internal/services/merger"
	"github.com/vadiminshakov/txtally/internal/services/normalizer"
	"github.com/vadiminshakov/txtally/internal/services/report"
	"go.uber.org/zap"
)

// SourceBatch is one endpoint's raw records tagged with provenance.
type SourceBatch struct {
	Source  string
	Records []domain.RawRecord
}

// TransferBatch additionally carries the transfer type assumed when a
// record's own type string classifies as nothing.
type TransferBatch struct {
	Source   string
	Fallback domain.EventSubtype
	Records  []domain.RawRecord
}

// Input is the full fetched state of one run.
type Input struct {
	AccountIndex int64
	MarketMap    map[int64]string
	Trades       []SourceBatch
	Transfers    []TransferBatch
	Balances     []SourceBatch
	AirdropHints []SourceBatch
	Outcomes     []domain.EndpointOutcome
}

// Options tune the run.
type Options struct {
	TokenKeywords         []string
	TokenKeyword          string
	CoreEndpoints         []string
	ApproxDepositTarget   decimal.Decimal
	ApproxDepositBand     decimal.Decimal
	InjectInferredDeposit bool
}

// Result is everything downstream exporters consume.
type Result struct {
	Events       []domain.CanonicalEvent
	Trades       []domain.Trade
	Transfers    []domain.Transfer
	Balances     []domain.BalanceSnapshot
	Airdrops     []domain.Airdrop
	Verification domain.DepositVerification
	Report       *report.ProfitReport
	Injected     bool
	Outcomes     []domain.EndpointOutcome
	Dropped      int
}

// Pipeline runs the normalization and reconciliation stages.
type Pipeline struct {
	opts Options
	l    *zap.Logger
}

// New creates a Pipeline.
func New(opts Options, l *zap.Logger) *Pipeline {
	if l == nil {
		l = zap.NewNop()
	}
	return &Pipeline{opts: opts, l: l}
}

// Run executes the full pipeline. The only fatal condition is the
// coverage guard; unparseable records are dropped and counted.
func (p *Pipeline) Run(in Input) (*Result, error) {
	norm := normalizer.New(in.AccountIndex, in.MarketMap, p.opts.TokenKeywords)
	dropped := 0

	var trades []domain.Trade
	for _, batch := range in.Trades {
		for _, raw := range batch.Records {
			row, ok := norm.Trade(raw, batch.Source)
			if !ok {
				dropped++
				continue
			}
			trades = append(trades, row)
		}
	}

	var transfers []domain.Transfer
	for _, batch := range in.Transfers {
		for _, raw := range batch.Records {
			row, ok := norm.Transfer(raw, batch.Source, batch.Fallback)
			if !ok {
				dropped++
				continue
			}
			transfers = append(transfers, row)
		}
	}

	var balances []domain.BalanceSnapshot
	for _, batch := range in.Balances {
		for _, raw := range batch.Records {
			balances = append(balances, norm.Balance(raw, batch.Source))
		}
	}

	airdrops := norm.AirdropsFromTransfers(transfers)
	for _, batch := range in.AirdropHints {
		for _, raw := range batch.Records {
			if row, ok := norm.AirdropHint(raw, batch.Source); ok {
				airdrops = append(airdrops, row)
			}
		}
	}

	trades = merger.Trades(trades)
	transfers = merger.Transfers(transfers)
	balances = merger.Balances(balances)
	airdrops = merger.Airdrops(airdrops)

	guard := coverage.NewGuard(p.opts.CoreEndpoints, p.l)
	if err := guard.Check(in.Outcomes, len(transfers), len(trades)); err != nil {
		return nil, errors.Wrap(err, "coverage guard rejected the run")
	}

	events := merger.Unify(trades, transfers, balances, airdrops)

	profitReport := report.Build(events, balances, p.opts.TokenKeyword)

	injected := false
	if p.opts.InjectInferredDeposit {
		transfers, injected = inference.MaterializeInitialDeposit(transfers, trades, balances, profitReport.Inference)
		if injected {
			p.l.Info("injected inferred initial deposit",
				zap.String("amount", profitReport.Inference.EstimatedBeginningEquity.String()),
				zap.String("method", profitReport.Inference.Method),
				zap.String("confidence", profitReport.Inference.Confidence))
			transfers = merger.Transfers(transfers)
			events = merger.Unify(trades, transfers, balances, airdrops)

			// the synthetic deposit is part of the timeline now, so the
			// waterfall is rebuilt over it; the inference that sized the
			// injection stays the reported one
			inferred := profitReport.Inference
			profitReport = report.Build(events, balances, p.opts.TokenKeyword)
			profitReport.Inference = inferred
		}
	}

	verification := inference.VerifyDeposits(transfers, trades, balances,
		p.opts.ApproxDepositTarget, p.opts.ApproxDepositBand)

	if dropped > 0 {
		p.l.Warn("dropped unparseable records", zap.Int("count", dropped))
	}

	return &Result{
		Events:       events,
		Trades:       trades,
		Transfers:    transfers,
		Balances:     balances,
		Airdrops:     airdrops,
		Verification: verification,
		Report:       profitReport,
		Injected:     injected,
		Outcomes:     in.Outcomes,
		Dropped:      dropped,
	}, nil
}
