// Command txtally aggregates trading activity from Lighter and optional
// CEX accounts into a unified timeline, reconciles initial capital, and
// writes profit reports.
//
// Usage:
//
//	txtally --config config.yaml
//	txtally --setup
//
// Required environment variables:
//
//	LIGHTER_RO_TOKEN (must be a read-only "ro:" token)
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/vadiminshakov/txtally/config"
	"github.com/vadiminshakov/txtally/internal/clients"
	"github.com/vadiminshakov/txtally/internal/export"
	"github.com/vadiminshakov/txtally/internal/services/fetcher"
	"github.com/vadiminshakov/txtally/internal/services/guard"
	"github.com/vadiminshakov/txtally/internal/services/pipeline"
	"github.com/vadiminshakov/txtally/internal/setup"
	"github.com/vadiminshakov/txtally/internal/storage/balancesnapshots"
	"github.com/vadiminshakov/txtally/internal/storage/rawlog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	runSetup := flag.Bool("setup", false, "run the interactive configuration wizard")
	flag.Parse()

	if *runSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Get(*configPath)
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	baseURL := cfg.LighterBaseURL
	if baseURL == "" {
		baseURL = clients.DefaultLighterBaseURL
	}

	accessGuard := guard.New(logger)
	if err := accessGuard.CheckLighterToken(ctx, baseURL, cfg.LighterROToken, cfg.AccountIndex); err != nil {
		return err
	}

	lighter := clients.NewLighterClient(baseURL, cfg.ExplorerBaseURL, cfg.LighterROToken, cfg.AccountIndex, cfg.MarketID, logger)

	opts := []fetcher.Option{fetcher.WithMaxPages(cfg.MaxPages)}

	if cfg.L1Address != "" {
		opts = append(opts, fetcher.WithL1Address(cfg.L1Address))
	}

	if cfg.Binance.Enabled {
		bf := clients.NewBinanceFetcher(cfg.Binance.APIKey, cfg.Binance.APISecret, logger)
		if err := accessGuard.CheckBinance(ctx, bf.Client()); err != nil {
			return err
		}
		opts = append(opts, fetcher.WithBinance(bf, cfg.Binance.Symbols))
	}

	if cfg.Bybit.Enabled {
		opts = append(opts, fetcher.WithBybit(
			clients.NewBybitFetcher(cfg.Bybit.APIKey, cfg.Bybit.APISecret, logger),
			cfg.Bybit.Symbols,
		))
	}

	rawStore, err := rawlog.NewWALStore(cfg.RawWALDir)
	if err != nil {
		return err
	}
	defer rawStore.Close()
	opts = append(opts, fetcher.WithRawSink(rawStore))

	in := fetcher.New(lighter, logger, opts...).Fetch(ctx)

	p := pipeline.New(pipeline.Options{
		TokenKeywords:         cfg.TokenKeywords,
		TokenKeyword:          cfg.TokenKeyword,
		CoreEndpoints:         cfg.CoreEndpoints,
		ApproxDepositTarget:   cfg.ApproxDepositTarget,
		ApproxDepositBand:     cfg.ApproxDepositBand,
		InjectInferredDeposit: cfg.InjectInferredDep,
	}, logger)

	res, err := p.Run(in)
	if err != nil {
		return err
	}

	snapStore, err := balancesnapshots.NewWALStore("")
	if err != nil {
		return err
	}
	defer snapStore.Close()
	for _, snap := range res.Balances {
		if err := snapStore.Save(snap); err != nil {
			logger.Warn("failed to persist balance snapshot", zap.Error(err))
		}
	}

	dir, err := export.EnsureDir(cfg.OutputDir)
	if err != nil {
		return err
	}

	if err := export.WriteTimelineCSV(export.Path(dir, "timeline.csv"), res.Events, cfg.FxRate); err != nil {
		return err
	}
	if err := export.WriteBreakdownCSV(export.Path(dir, "daily.csv"), res.Report.Daily); err != nil {
		return err
	}
	if err := export.WriteBreakdownCSV(export.Path(dir, "monthly.csv"), res.Report.Monthly); err != nil {
		return err
	}
	if err := export.WriteLedgerCSV(export.Path(dir, "ledger.csv"), res.Report.Ledger); err != nil {
		return err
	}

	diag := export.NewDiagnostics(res)
	if err := export.WriteDiagnosticsJSON(export.Path(dir, "diagnostics.json"), diag); err != nil {
		return err
	}

	fmt.Println(export.RenderConsoleReport(res))
	logger.Info("run complete",
		zap.String("run_id", diag.RunID),
		zap.String("output_dir", dir),
		zap.Int("events", len(res.Events)))

	return nil
}
