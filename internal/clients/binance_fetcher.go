package clients

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/txtally/internal/domain"
)

// BinanceFetcher pulls account history from Binance spot and shapes it
// into raw records for normalization.
type BinanceFetcher struct {
	client *binance.Client
	logger *zap.Logger
}

// NewBinanceFetcher creates a fetcher over an authenticated client.
func NewBinanceFetcher(apiKey, apiSecret string, logger *zap.Logger) *BinanceFetcher {
	return &BinanceFetcher{
		client: binance.NewClient(apiKey, apiSecret),
		logger: logger,
	}
}

// Client exposes the underlying SDK client for permission probing.
func (f *BinanceFetcher) Client() *binance.Client {
	return f.client
}

// Trades lists spot fills for the given symbols.
func (f *BinanceFetcher) Trades(ctx context.Context, symbols []string) ([]domain.RawRecord, error) {
	var rows []domain.RawRecord
	for _, symbol := range symbols {
		trades, err := f.client.NewListTradesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return rows, errors.Wrapf(err, "list binance trades for %s", symbol)
		}

		for _, t := range trades {
			side := "sell"
			if t.IsBuyer {
				side = "buy"
			}
			rows = append(rows, domain.RawRecord{
				"symbol":    t.Symbol,
				"side":      side,
				"size":      t.Quantity,
				"price":     t.Price,
				"fee":       t.Commission,
				"timestamp": t.Time,
				"tx_hash":   "",
				"is_maker":  t.IsMaker,
			})
		}
	}

	f.logger.Debug("fetched binance trades", zap.Int("records", len(rows)))
	return rows, nil
}

// Deposits lists completed deposits.
func (f *BinanceFetcher) Deposits(ctx context.Context) ([]domain.RawRecord, error) {
	deposits, err := f.client.NewListDepositsService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list binance deposits")
	}

	rows := make([]domain.RawRecord, 0, len(deposits))
	for _, d := range deposits {
		rows = append(rows, domain.RawRecord{
			"type":      "deposit",
			"asset":     d.Coin,
			"amount":    d.Amount,
			"timestamp": d.InsertTime,
			"tx_hash":   d.TxID,
		})
	}
	return rows, nil
}

// Withdrawals lists withdrawal history.
func (f *BinanceFetcher) Withdrawals(ctx context.Context) ([]domain.RawRecord, error) {
	withdraws, err := f.client.NewListWithdrawsService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list binance withdrawals")
	}

	rows := make([]domain.RawRecord, 0, len(withdraws))
	for _, w := range withdraws {
		rows = append(rows, domain.RawRecord{
			"type":      "withdraw",
			"asset":     w.Coin,
			"amount":    w.Amount,
			"fee":       w.TransactionFee,
			"timestamp": w.ApplyTime,
			"tx_hash":   w.TxID,
		})
	}
	return rows, nil
}

