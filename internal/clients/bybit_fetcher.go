package clients

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/txtally/internal/domain"
)

// BybitFetcher pulls execution history from the Bybit v5 API.
type BybitFetcher struct {
	client *bybit.Client
	logger *zap.Logger
}

// NewBybitFetcher creates a fetcher over an authenticated client.
func NewBybitFetcher(apiKey, apiSecret string, logger *zap.Logger) *BybitFetcher {
	return &BybitFetcher{
		client: bybit.NewClient().WithAuth(apiKey, apiSecret),
		logger: logger,
	}
}

// Executions lists spot fills for the given symbols.
func (f *BybitFetcher) Executions(ctx context.Context, symbols []string) ([]domain.RawRecord, error) {
	var rows []domain.RawRecord
	for _, s := range symbols {
		symbol := bybit.SymbolV5(s)
		res, err := f.client.V5().Execution().GetExecutionList(bybit.V5GetExecutionParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   &symbol,
		})
		if err != nil {
			return rows, errors.Wrapf(err, "list bybit executions for %s", s)
		}

		for _, e := range res.Result.List {
			rows = append(rows, domain.RawRecord{
				"symbol":    e.Symbol,
				"side":      string(e.Side),
				"size":      e.ExecQty,
				"price":     e.ExecPrice,
				"fee":       e.ExecFee,
				"timestamp": e.ExecTime,
				"is_maker":  e.IsMaker,
			})
		}
	}

	f.logger.Debug("fetched bybit executions", zap.Int("records", len(rows)))
	return rows, nil
}

