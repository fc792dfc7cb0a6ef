package export

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/txtally/internal/domain"
	"github.com/vadiminshakov/txtally/internal/services/pipeline"
	"github.com/vadiminshakov/txtally/internal/services/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			MarginBottom(1)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#6B6B6B"})

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
)

// RenderConsoleReport formats the full run result for the terminal.
func RenderConsoleReport(res *pipeline.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TXTALLY RUN REPORT"))
	b.WriteString("\n")

	b.WriteString(renderEndpoints(res.Outcomes))
	b.WriteString("\n")
	b.WriteString(renderLedger(res.Report))
	b.WriteString("\n")
	b.WriteString(renderSummary(res))

	if len(res.Report.Inference.Caveats) > 0 {
		b.WriteString("\n")
		for _, c := range res.Report.Inference.Caveats {
			b.WriteString(dimStyle.Render("! " + c))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderEndpoints(outcomes []domain.EndpointOutcome) string {
	var rows []string
	for _, o := range outcomes {
		status := okStyle.Render("ok")
		detail := fmt.Sprintf("%d records", o.Records)
		if !o.Success {
			status = failStyle.Render("failed")
			detail = o.Error
		}
		rows = append(rows, fmt.Sprintf("%-22s %-8s %s", o.Name, status, dimStyle.Render(detail)))
	}
	return boxStyle.Render("ENDPOINTS\n" + strings.Join(rows, "\n"))
}

func renderLedger(r *report.ProfitReport) string {
	var rows []string
	for _, line := range r.Ledger {
		rows = append(rows, fmt.Sprintf("%-28s %16s", line.Label, line.Value.StringFixed(4)))
	}
	return boxStyle.Render("RECONCILIATION\n" + strings.Join(rows, "\n"))
}

func renderSummary(res *pipeline.Result) string {
	s := res.Report.Summary
	rows := []string{
		fmt.Sprintf("%-28s %16s", "total_profit", s.TotalProfit.StringFixed(4)),
		fmt.Sprintf("%-28s %16s", "ending_equity", s.EndingEquity.StringFixed(4)),
		fmt.Sprintf("%-28s %16s", "beginning_equity_estimate", s.BeginningEquityEstimate.StringFixed(4)),
		fmt.Sprintf("%-28s %16s", "net_deposits", s.NetDeposits.StringFixed(4)),
		fmt.Sprintf("%-28s %16s", "token_sales_pnl", s.TokenSalesPnL.StringFixed(4)),
		fmt.Sprintf("%-28s %16s", "events", fmt.Sprintf("%d", len(res.Events))),
		fmt.Sprintf("%-28s %16s", "dropped_records", fmt.Sprintf("%d", res.Dropped)),
	}
	if res.Injected {
		rows = append(rows, dimStyle.Render("synthetic initial deposit injected into timeline"))
	}
	rows = append(rows, dimStyle.Render(fmt.Sprintf("inference: %s (%s)",
		res.Report.Inference.Method, res.Report.Inference.Confidence)))

	return boxStyle.Render("SUMMARY\n" + strings.Join(rows, "\n"))
}
