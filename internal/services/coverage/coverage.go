// Package coverage validates that enough raw data sources succeeded to
// trust the downstream computations. A revoked API key or network change
// would otherwise pass through the pipeline as a misleadingly clean but
// empty report.
package coverage

import (
	"encoding/json"
	"fmt"

	"github.com/vadiminshakov/txtally/internal/domain"
	"go.uber.org/zap"
)

// DefaultCoreEndpoints must have been attempted on every run.
var DefaultCoreEndpoints = []string{
	"trades",
	"deposit/history",
	"withdraw/history",
	"l1Metadata",
}

// Error is the fatal coverage failure carrying structured diagnostics.
type Error struct {
	MissingCore  []string `json:"missing_core_status"`
	FailedCore   []string `json:"failed_core_endpoints"`
	TransferRows int      `json:"transfers_rows"`
	TradeRows    int      `json:"trades_rows"`
}

func (e *Error) Error() string {
	details, err := json.Marshal(e)
	if err != nil {
		return "extraction failed: core endpoint coverage is insufficient"
	}
	return fmt.Sprintf("extraction failed: core endpoint coverage is insufficient, details=%s", details)
}

// Guard gates the pipeline right after fetch, before inference.
type Guard struct {
	core []string
	l    *zap.Logger
}

// NewGuard creates a Guard for the configured core endpoint names.
func NewGuard(core []string, l *zap.Logger) *Guard {
	if len(core) == 0 {
		core = DefaultCoreEndpoints
	}
	return &Guard{core: core, l: l}
}

// Check aborts the run when any core endpoint was never attempted, or when
// both tables are empty and every attempted core endpoint failed. Partial
// failure with at least some data proceeds with a warning.
func (g *Guard) Check(outcomes []domain.EndpointOutcome, transferRows, tradeRows int) error {
	byName := make(map[string]domain.EndpointOutcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.Name] = o
	}

	var missing, failed []string
	attempted := 0
	for _, name := range g.core {
		o, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		attempted++
		if !o.Success {
			failed = append(failed, name)
		}
	}

	noData := transferRows == 0 && tradeRows == 0
	allCoreFailed := len(failed) == attempted

	if len(missing) > 0 || (noData && allCoreFailed) {
		return &Error{
			MissingCore:  missing,
			FailedCore:   failed,
			TransferRows: transferRows,
			TradeRows:    tradeRows,
		}
	}

	if len(failed) > 0 && g.l != nil {
		g.l.Warn("some core endpoints failed, proceeding with partial data",
			zap.Strings("failed_core_endpoints", failed),
			zap.Int("transfers_rows", transferRows),
			zap.Int("trades_rows", tradeRows))
	}
	return nil
}
