// Package fetcher pulls raw history from every configured venue and
// records per-endpoint outcomes for the coverage guard. Individual
// endpoint failures are never fatal here; the guard decides whether
// the run may proceed.
package fetcher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vadiminshakov/txtally/internal/clients"
	"github.com/vadiminshakov/txtally/internal/domain"
	"github.com/vadiminshakov/txtally/internal/services/pipeline"
)

// RawSink receives every fetched batch for audit persistence.
type RawSink interface {
	Append(endpoint string, records []domain.RawRecord) error
}

// Fetcher aggregates venue clients into one pipeline input.
type Fetcher struct {
	lighter        *clients.LighterClient
	binance        *clients.BinanceFetcher
	bybit          *clients.BybitFetcher
	binanceSymbols []string
	bybitSymbols   []string
	l1Address      string
	maxPages       int
	sink           RawSink
	logger         *zap.Logger
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithBinance enables the Binance spot fetcher for the given symbols.
func WithBinance(f *clients.BinanceFetcher, symbols []string) Option {
	return func(ftr *Fetcher) {
		ftr.binance = f
		ftr.binanceSymbols = symbols
	}
}

// WithBybit enables the Bybit fetcher for the given symbols.
func WithBybit(f *clients.BybitFetcher, symbols []string) Option {
	return func(ftr *Fetcher) {
		ftr.bybit = f
		ftr.bybitSymbols = symbols
	}
}

// WithMaxPages caps cursor pagination per endpoint.
func WithMaxPages(n int) Option {
	return func(ftr *Fetcher) {
		ftr.maxPages = n
	}
}

// WithRawSink persists every fetched batch before normalization.
func WithRawSink(s RawSink) Option {
	return func(ftr *Fetcher) {
		ftr.sink = s
	}
}

// WithL1Address skips resolving the address from the account endpoint.
func WithL1Address(addr string) Option {
	return func(ftr *Fetcher) {
		ftr.l1Address = addr
	}
}

// New creates a Fetcher around the mandatory Lighter client.
func New(lighter *clients.LighterClient, logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		lighter:  lighter,
		maxPages: 50,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) record(outcomes []domain.EndpointOutcome, name string, records []domain.RawRecord, err error) []domain.EndpointOutcome {
	out := domain.EndpointOutcome{Name: name, Success: err == nil, Records: len(records)}
	if err != nil {
		out.Error = err.Error()
		f.logger.Warn("endpoint failed", zap.String("endpoint", name), zap.Error(err))
	} else if f.sink != nil && len(records) > 0 {
		if sinkErr := f.sink.Append(name, records); sinkErr != nil {
			f.logger.Warn("raw sink append failed", zap.String("endpoint", name), zap.Error(sinkErr))
		}
	}
	return append(outcomes, out)
}

// Fetch pulls every endpoint and assembles the pipeline input. The
// returned input is usable even when endpoints failed; failures are
// visible in Outcomes.
func (f *Fetcher) Fetch(ctx context.Context) pipeline.Input {
	in := pipeline.Input{AccountIndex: f.lighter.AccountIndexValue()}

	marketMap, err := f.lighter.MarketMap(ctx)
	in.Outcomes = f.record(in.Outcomes, "orderBooks", nil, err)
	in.MarketMap = marketMap

	trades, err := f.lighter.FetchTrades(ctx, f.maxPages)
	in.Outcomes = f.record(in.Outcomes, "trades", trades, err)
	if len(trades) > 0 {
		in.Trades = append(in.Trades, pipeline.SourceBatch{Source: "lighter", Records: trades})
	}

	transfers, err := f.lighter.FetchTransferHistory(ctx, f.maxPages)
	in.Outcomes = f.record(in.Outcomes, "transfer/history", transfers, err)
	if len(transfers) > 0 {
		in.Transfers = append(in.Transfers, pipeline.TransferBatch{
			Source:   "lighter",
			Fallback: domain.SubtypeTransfer,
			Records:  transfers,
		})
	}

	withdraws, err := f.lighter.FetchWithdrawHistory(ctx, f.maxPages)
	in.Outcomes = f.record(in.Outcomes, "withdraw/history", withdraws, err)
	if len(withdraws) > 0 {
		in.Transfers = append(in.Transfers, pipeline.TransferBatch{
			Source:   "lighter",
			Fallback: domain.SubtypeWithdraw,
			Records:  withdraws,
		})
	}

	acc, err := f.lighter.FetchAccount(ctx)
	var accRecords []domain.RawRecord
	if err == nil {
		accRecords = []domain.RawRecord{acc}
	}
	in.Outcomes = f.record(in.Outcomes, "account", accRecords, err)
	if len(accRecords) > 0 {
		in.Balances = append(in.Balances, pipeline.SourceBatch{Source: "lighter", Records: accRecords})
	}

	l1Address := f.l1Address
	if l1Address == "" {
		l1Address = clients.ExtractL1Address(acc)
	}
	if l1Address != "" {
		deposits, depErr := f.lighter.FetchDepositHistory(ctx, l1Address, f.maxPages)
		in.Outcomes = f.record(in.Outcomes, "deposit/history", deposits, depErr)
		if len(deposits) > 0 {
			in.Transfers = append(in.Transfers, pipeline.TransferBatch{
				Source:   "lighter",
				Fallback: domain.SubtypeDeposit,
				Records:  deposits,
			})
		}
	}

	meta, err := f.lighter.FetchL1Metadata(ctx, l1Address)
	in.Outcomes = f.record(in.Outcomes, "l1Metadata", meta, err)
	if len(meta) > 0 {
		in.Transfers = append(in.Transfers, pipeline.TransferBatch{
			Source:   "lighter",
			Fallback: domain.SubtypeTransfer,
			Records:  meta,
		})
		in.AirdropHints = append(in.AirdropHints, pipeline.SourceBatch{Source: "lighter", Records: meta})
	}

	// historical balance endpoints are probed best-effort; most
	// deployments expose none of them
	for _, endpoint := range clients.BalanceHistoryEndpoints {
		history, histErr := f.lighter.FetchBalanceHistory(ctx, endpoint, f.maxPages)
		in.Outcomes = f.record(in.Outcomes, endpoint, history, histErr)
		if len(history) > 0 {
			in.Balances = append(in.Balances, pipeline.SourceBatch{Source: endpoint, Records: history})
		}
	}

	f.fetchExplorerLogs(ctx, &in, l1Address)

	if f.binance != nil {
		f.fetchBinance(ctx, &in)
	}
	if f.bybit != nil {
		f.fetchBybit(ctx, &in)
	}

	return in
}

// explorerTransferTypes are the log rows the explorer emits that map to
// transfer events.
var explorerTransferTypes = map[string]struct{}{
	"l1deposit":  {},
	"l1withdraw": {},
	"deposit":    {},
	"withdraw":   {},
	"l2transfer": {},
	"transfer":   {},
}

// fetchExplorerLogs pulls the explorer's account log as a fallback
// transfer source, once by account index and once by L1 address when
// one is known.
func (f *Fetcher) fetchExplorerLogs(ctx context.Context, in *pipeline.Input, l1Address string) {
	params := []string{f.lighter.AccountIndex()}
	if l1Address != "" {
		params = append(params, l1Address)
	}

	for _, param := range params {
		name := fmt.Sprintf("explorer.logs[%s]", param)
		logs, err := f.lighter.FetchExplorerLogs(ctx, param, f.maxPages)

		var transfers []domain.RawRecord
		for _, log := range logs {
			txType := strings.ToLower(log.Text("tx_type"))
			if _, ok := explorerTransferTypes[txType]; ok {
				transfers = append(transfers, log)
			}
		}

		in.Outcomes = f.record(in.Outcomes, name, transfers, err)
		if len(transfers) > 0 {
			in.Transfers = append(in.Transfers, pipeline.TransferBatch{
				Source:   name,
				Fallback: domain.SubtypeTransfer,
				Records:  transfers,
			})
		}
	}
}

func (f *Fetcher) fetchBinance(ctx context.Context, in *pipeline.Input) {
	trades, err := f.binance.Trades(ctx, f.binanceSymbols)
	in.Outcomes = f.record(in.Outcomes, "binance/trades", trades, err)
	if len(trades) > 0 {
		in.Trades = append(in.Trades, pipeline.SourceBatch{Source: "binance", Records: trades})
	}

	deposits, err := f.binance.Deposits(ctx)
	in.Outcomes = f.record(in.Outcomes, "binance/deposits", deposits, err)
	if len(deposits) > 0 {
		in.Transfers = append(in.Transfers, pipeline.TransferBatch{
			Source:   "binance",
			Fallback: domain.SubtypeDeposit,
			Records:  deposits,
		})
	}

	withdraws, err := f.binance.Withdrawals(ctx)
	in.Outcomes = f.record(in.Outcomes, "binance/withdrawals", withdraws, err)
	if len(withdraws) > 0 {
		in.Transfers = append(in.Transfers, pipeline.TransferBatch{
			Source:   "binance",
			Fallback: domain.SubtypeWithdraw,
			Records:  withdraws,
		})
	}
}

func (f *Fetcher) fetchBybit(ctx context.Context, in *pipeline.Input) {
	execs, err := f.bybit.Executions(ctx, f.bybitSymbols)
	in.Outcomes = f.record(in.Outcomes, "bybit/executions", execs, err)
	if len(execs) > 0 {
		in.Trades = append(in.Trades, pipeline.SourceBatch{Source: "bybit", Records: execs})
	}
}
