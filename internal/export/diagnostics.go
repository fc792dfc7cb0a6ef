package export

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/txtally/internal/domain"
	"github.com/vadiminshakov/txtally/internal/services/pipeline"
)

// Diagnostics is the machine-readable run record: what was fetched,
// what the guard saw, and what the reporter concluded.
type Diagnostics struct {
	RunID           string                     `json:"run_id"`
	GeneratedAt     time.Time                  `json:"generated_at"`
	Outcomes        []domain.EndpointOutcome   `json:"endpoint_outcomes"`
	DroppedRecords  int                        `json:"dropped_records"`
	EventCount      int                        `json:"event_count"`
	InjectedDeposit bool                       `json:"injected_deposit"`
	Verification    domain.DepositVerification `json:"deposit_verification"`
	Summary         map[string]decimal.Decimal `json:"summary"`
	Inference       domain.InitialCapitalInference `json:"initial_capital_inference"`
	Ledger          []domain.LedgerLine        `json:"ledger"`
}

// NewDiagnostics assembles the diagnostics document for one run.
func NewDiagnostics(res *pipeline.Result) Diagnostics {
	return Diagnostics{
		RunID:           uuid.NewString(),
		GeneratedAt:     time.Now().UTC(),
		Outcomes:        res.Outcomes,
		DroppedRecords:  res.Dropped,
		EventCount:      len(res.Events),
		InjectedDeposit: res.Injected,
		Verification:    res.Verification,
		Summary:         res.Report.Summary.Map(),
		Inference:       res.Report.Inference,
		Ledger:          res.Report.Ledger,
	}
}

// WriteDiagnosticsJSON writes the diagnostics document to path.
func WriteDiagnosticsJSON(path string, d Diagnostics) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal diagnostics")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write diagnostics")
	}
	return nil
}
