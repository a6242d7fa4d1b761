package analyzecli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/okian/tapdiag/internal/domain/analytics"
)

// Render writes report to w in format.
func Render(w io.Writer, report analytics.Report, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return renderText(w, report)
}

func renderText(w io.Writer, r analytics.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Distribution analysis (%s) at %s\n", r.Timeframe, r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(tw, "Composite score:\t%.1f\n\n", r.CompositeScore)

	fmt.Fprintln(tw, "Metrics")
	fmt.Fprintf(tw, "  Equity index\t%.1f\n", r.Metrics.EquityIndex)
	fmt.Fprintf(tw, "  Distribution score\t%.1f\n", r.Metrics.DistributionScore)
	fmt.Fprintf(tw, "  Variance threshold\t%.1f\n", r.Metrics.VarianceThreshold)
	fmt.Fprintf(tw, "  Target alignment\t%.1f\n", r.Metrics.TargetAlignment)
	fmt.Fprintf(tw, "  Diversity index\t%.1f\n", r.Metrics.DiversityIndex)

	fmt.Fprintf(tw, "\nAlerts (%d)\n", len(r.Alerts))
	for _, a := range r.Alerts {
		fmt.Fprintf(tw, "  [%s]\t%s\t%s\n", a.Severity, a.Category, a.Message)
		fmt.Fprintf(tw, "  \t\t-> %s\n", a.Recommendation)
	}

	fmt.Fprintln(tw, "\nTrends")
	for _, t := range r.Trends {
		fmt.Fprintf(tw, "  %s\t%s\trate %+.1f\tconfidence %.0f%%\n", t.Category, t.Direction, t.Rate, t.Confidence*100)
	}

	fmt.Fprintln(tw, "\nRecommendations")
	if len(r.Recommendations) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(tw, "  - %s\n", strings.TrimSpace(rec))
	}
	return tw.Flush()
}
