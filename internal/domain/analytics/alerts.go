package analytics

import (
	"fmt"
	"math"
	"time"
)

const (
	equityAlertBelow       = 70.0
	equityHighBelow        = 50.0
	distributionAlertBelow = 75.0
	distributionHighBelow  = 60.0
	varianceHighAbove      = 10.0
	varianceMediumAbove    = 7.0
)

// GenerateAlerts flags categories whose absolute variance exceeds the
// configured threshold, then low equity and low distribution scores.
func GenerateAlerts(data []DataPoint, m Metrics, cfg Config, now time.Time) []Alert {
	alerts := make([]Alert, 0)

	for i, d := range data {
		abs := math.Abs(d.Variance)
		if abs <= cfg.AlertThresholds.Variance {
			continue
		}
		severity := SeverityLow
		switch {
		case abs > varianceHighAbove:
			severity = SeverityHigh
		case abs > varianceMediumAbove:
			severity = SeverityMedium
		}
		rec := "Implement strategies to increase representation"
		if d.Variance > 0 {
			rec = "Consider measures to reduce over-representation"
		}
		alerts = append(alerts, Alert{
			ID:             fmt.Sprintf("variance-%d", i),
			Category:       d.Category,
			Message:        fmt.Sprintf("Distribution variance of %.1f%% exceeds threshold", d.Variance),
			Severity:       severity,
			Recommendation: rec,
			Timestamp:      now,
		})
	}

	if m.EquityIndex < equityAlertBelow {
		severity := SeverityMedium
		if m.EquityIndex < equityHighBelow {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			ID:             "equity-low",
			Category:       "Overall Equity",
			Message:        fmt.Sprintf("Equity index of %.1f is below acceptable threshold", m.EquityIndex),
			Severity:       severity,
			Recommendation: "Review distribution targets and implement corrective measures",
			Timestamp:      now,
		})
	}

	if m.DistributionScore < distributionAlertBelow {
		severity := SeverityMedium
		if m.DistributionScore < distributionHighBelow {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			ID:             "distribution-low",
			Category:       "Distribution Alignment",
			Message:        fmt.Sprintf("Distribution score of %.1f indicates poor target alignment", m.DistributionScore),
			Severity:       severity,
			Recommendation: "Adjust targets or improve distribution mechanisms",
			Timestamp:      now,
		})
	}

	return alerts
}
