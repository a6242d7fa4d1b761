package analytics

import (
	"math"
	"strings"
)

const recommendVarianceFocus = 5.0

// AnalyzeTrends derives a rate and confidence per category. Confidence falls
// as the absolute variance grows; stable categories have rate 0.
func AnalyzeTrends(data []DataPoint) []Trend {
	trends := make([]Trend, len(data))
	for i, d := range data {
		abs := math.Abs(d.Variance)
		var rate float64
		switch d.Trend {
		case Increasing:
			rate = clamp(0.5, 5.0, abs*0.3)
		case Decreasing:
			rate = -clamp(0.5, 5.0, abs*0.3)
		}
		direction := d.Trend
		if direction == "" {
			direction = Stable
		}
		trends[i] = Trend{
			Category:   d.Category,
			Direction:  direction,
			Rate:       rate,
			Confidence: math.Max(0.1, 1-abs/20),
		}
	}
	return trends
}

// GenerateRecommendations applies the rule list in order; every rule that
// matches contributes one line.
func GenerateRecommendations(data []DataPoint, m Metrics, alerts []Alert) []string {
	recs := make([]string, 0)

	if m.EquityIndex < 80 {
		recs = append(recs, "Implement targeted outreach programs for underrepresented groups")
	}
	if m.DistributionScore < 85 {
		recs = append(recs, "Review and adjust distribution targets based on current data")
	}
	if m.DiversityIndex < 70 {
		recs = append(recs, "Develop strategies to increase overall diversity")
	}

	var wide, declining []string
	for _, d := range data {
		if math.Abs(d.Variance) > recommendVarianceFocus {
			wide = append(wide, d.Category)
		}
		if d.Trend == Decreasing {
			declining = append(declining, d.Category)
		}
	}
	if len(wide) > 0 {
		recs = append(recs, "Focus on balancing representation in: "+strings.Join(wide, ", "))
	}

	for _, a := range alerts {
		if a.Severity == SeverityHigh {
			recs = append(recs, "Address high-priority distribution issues immediately")
			break
		}
	}

	if len(declining) > 0 {
		recs = append(recs, "Investigate declining trends in: "+strings.Join(declining, ", "))
	}

	return recs
}
