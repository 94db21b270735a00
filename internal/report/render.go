package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/analyze"
)

// Render produces the notification title and markdown body for a run.
// Failed holdings get an error marker instead of metrics, and a fully
// failed run still yields a readable summary.
func Render(run Run) (title, body string) {
	date := run.FinishedAt.Format("2006-01-02")
	switch run.Outcome {
	case OutcomeFailed:
		title = fmt.Sprintf("Fund report %s: all holdings failed", date)
	case OutcomePartial:
		title = fmt.Sprintf("Fund report %s (%d/%d ok)", date, len(run.Holdings)-run.FailedCount(), len(run.Holdings))
	default:
		title = fmt.Sprintf("Fund report %s: %s", date, signed(run.Totals.TodayProfit))
	}

	var b strings.Builder
	for _, h := range run.Holdings {
		writeHolding(&b, h)
	}
	if run.Outcome != OutcomeFailed && len(run.Holdings) > 0 {
		writeTotals(&b, run.Totals)
	}
	if run.Outcome == OutcomeFailed {
		b.WriteString("No holding produced data; see the entries above for details.\n")
	}
	return title, b.String()
}

func writeHolding(b *strings.Builder, h HoldingResult) {
	name := h.Name
	if name == "" {
		name = h.Code
	} else {
		name = fmt.Sprintf("%s (%s)", h.Name, h.Code)
	}
	fmt.Fprintf(b, "**%s**\n\n", name)

	if h.Failed() {
		msg := h.ErrText
		if msg == "" && h.Err != nil {
			msg = h.Err.Error()
		}
		fmt.Fprintf(b, "- data unavailable: %s\n\n", msg)
		return
	}

	r := h.Returns
	fmt.Fprintf(b, "- NAV %s", r.CurrentNAV.StringFixed(4))
	if h.Stale {
		b.WriteString(" (previous trading day)")
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "- Today %s%% (%s)\n", signed(r.TodayChange), signed(r.TodayProfit))
	fmt.Fprintf(b, "- Total %s (%s%%)\n", signed(r.TotalProfit), signed(r.ReturnRate))
	fmt.Fprintf(b, "- Value %s\n", r.MarketValue.StringFixed(2))
	fmt.Fprintf(b, "- Trend %s\n", h.Trend.Label)
	if len(h.Forecast) > 0 {
		fmt.Fprintf(b, "- Forecast avg %+.2f%% over %d days\n", analyze.AverageChange(h.Forecast), len(h.Forecast))
	}
	b.WriteString("\n")
}

func writeTotals(b *strings.Builder, t Totals) {
	b.WriteString("**Portfolio**\n\n")
	fmt.Fprintf(b, "- Cost %s\n", t.Cost.StringFixed(2))
	fmt.Fprintf(b, "- Value %s\n", t.Value.StringFixed(2))
	fmt.Fprintf(b, "- Today %s\n", signed(t.TodayProfit))
	fmt.Fprintf(b, "- Total %s (%s%%)\n", signed(t.Profit), signed(t.ProfitRate))
}

// signed renders a decimal with an explicit plus on gains.
func signed(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}
