package analytics_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/tapdiag/internal/domain/analytics"
	"github.com/okian/tapdiag/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newAnalyzer(opts ...analytics.Option) *analytics.Analyzer {
	opts = append([]analytics.Option{analytics.WithClock(func() time.Time { return fixedNow })}, opts...)
	return analytics.NewAnalyzer(opts...)
}

func TestMetricFunctions(t *testing.T) {
	Convey("Given the sample dataset", t, func() {
		data := analytics.SampleDataset()

		Convey("When the metrics are computed", func() {
			m := analytics.Compute(data)

			Convey("Then each follows its formula", func() {
				So(m.EquityIndex, ShouldAlmostEqual, 51.0, 1e-9)
				So(m.DistributionScore, ShouldAlmostEqual, 88.0, 1e-9)
				So(m.VarianceThreshold, ShouldAlmostEqual, 3.0, 1e-9)
				So(m.TargetAlignment, ShouldAlmostEqual, 100.0, 1e-9)
				So(m.DiversityIndex, ShouldAlmostEqual, 91.07, 0.01)
			})
		})

		Convey("When the points are reordered", func() {
			reversed := make([]analytics.DataPoint, len(data))
			for i, d := range data {
				reversed[len(data)-1-i] = d
			}

			Convey("Then the metrics are the same", func() {
				a, b := analytics.Compute(data), analytics.Compute(reversed)
				So(b.EquityIndex, ShouldAlmostEqual, a.EquityIndex, 1e-9)
				So(b.DistributionScore, ShouldAlmostEqual, a.DistributionScore, 1e-9)
				So(b.DiversityIndex, ShouldAlmostEqual, a.DiversityIndex, 1e-9)
			})
		})
	})

	Convey("Given empty input", t, func() {
		Convey("Then the metric functions return their neutral values", func() {
			So(analytics.EquityIndex(nil), ShouldEqual, 0.0)
			So(analytics.DistributionScore(nil), ShouldEqual, 0.0)
			So(analytics.VarianceThreshold(nil), ShouldEqual, 5.0)
			So(analytics.TargetAlignment(nil), ShouldEqual, 0.0)
			So(analytics.DiversityIndex(nil), ShouldEqual, 0.0)
		})
	})

	Convey("Given a fully concentrated distribution", t, func() {
		data := []analytics.DataPoint{
			{Category: "A", Target: 34, Actual: 100},
			{Category: "B", Target: 33, Actual: 0},
			{Category: "C", Target: 33, Actual: 0},
		}

		Convey("Then the diversity index is 0", func() {
			So(analytics.DiversityIndex(data), ShouldEqual, 0.0)
		})
	})

	Convey("Given a single category", t, func() {
		data := []analytics.DataPoint{{Category: "A", Target: 50, Actual: 50}}

		Convey("Then the diversity index is 0", func() {
			So(analytics.DiversityIndex(data), ShouldEqual, 0.0)
		})
	})

	Convey("Given all targets are zero", t, func() {
		data := []analytics.DataPoint{{Category: "A", Actual: 10, Variance: 10}, {Category: "B", Actual: 5, Variance: 5}}

		Convey("Then target alignment is 0 instead of dividing by zero", func() {
			So(analytics.TargetAlignment(data), ShouldEqual, 0.0)
		})
	})

	Convey("Given shares that were never validated", t, func() {
		negTarget := []analytics.DataPoint{
			{Category: "A", Target: -10, Actual: 0, Variance: 10},
			{Category: "B", Target: 5, Actual: 5},
		}
		negActual := []analytics.DataPoint{
			{Category: "A", Target: 10, Actual: -10},
			{Category: "B", Target: 10, Actual: 30},
		}
		overshoot := []analytics.DataPoint{
			{Category: "A", Target: 10, Actual: 40},
			{Category: "B", Target: 10, Actual: 10},
		}

		Convey("Then every metric stays within [0,100]", func() {
			for _, data := range [][]analytics.DataPoint{negTarget, negActual, overshoot} {
				m := analytics.Compute(data)
				for _, v := range []float64{m.EquityIndex, m.DistributionScore, m.TargetAlignment, m.DiversityIndex} {
					So(v, ShouldBeBetweenOrEqual, 0.0, 100.0)
				}
			}
			So(analytics.TargetAlignment(negTarget), ShouldEqual, 0.0)
			So(analytics.DiversityIndex(negActual), ShouldEqual, 0.0)
			So(analytics.TargetAlignment(overshoot), ShouldEqual, 0.0)
		})
	})

	Convey("Given widely spread variances", t, func() {
		data := []analytics.DataPoint{
			{Category: "A", Variance: 0},
			{Category: "B", Variance: 40},
		}

		Convey("Then the variance threshold is capped at 10 and equity floors at 0", func() {
			So(analytics.VarianceThreshold(data), ShouldEqual, 10.0)
			So(analytics.EquityIndex(data), ShouldEqual, 0.0)
		})
	})

	Convey("Given metrics and weightings", t, func() {
		m := analytics.Metrics{EquityIndex: 51, DistributionScore: 88, TargetAlignment: 100}

		Convey("Then the composite score is the weighted sum", func() {
			So(analytics.CompositeScore(m, analytics.DefaultConfig().Weightings), ShouldAlmostEqual, 76.8, 1e-9)
		})
	})
}

func TestTrends(t *testing.T) {
	Convey("Given the sample dataset", t, func() {
		trends := analytics.AnalyzeTrends(analytics.SampleDataset())

		Convey("Then rates follow direction and confidence follows variance", func() {
			So(trends, ShouldHaveLength, 5)
			So(trends[0].Direction, ShouldEqual, analytics.Stable)
			So(trends[0].Rate, ShouldEqual, 0.0)
			So(trends[0].Confidence, ShouldAlmostEqual, 0.85, 1e-9)
			So(trends[1].Rate, ShouldAlmostEqual, 0.6, 1e-9)
			So(trends[2].Rate, ShouldAlmostEqual, 1.5, 1e-9)
			So(trends[4].Direction, ShouldEqual, analytics.Decreasing)
			So(trends[4].Rate, ShouldAlmostEqual, -0.5, 1e-9)
		})
	})

	Convey("Given extreme variances", t, func() {
		trends := analytics.AnalyzeTrends([]analytics.DataPoint{
			{Category: "A", Variance: 30, Trend: analytics.Increasing},
			{Category: "B", Variance: -30, Trend: analytics.Decreasing},
		})

		Convey("Then rates are clamped and confidence floors at 0.1", func() {
			So(trends[0].Rate, ShouldEqual, 5.0)
			So(trends[1].Rate, ShouldEqual, -5.0)
			So(trends[0].Confidence, ShouldEqual, 0.1)
		})
	})
}

func TestAlertsAndRecommendations(t *testing.T) {
	Convey("Given variances around the alert bands", t, func() {
		data := []analytics.DataPoint{
			{Category: "Low", Variance: 6},
			{Category: "Medium", Variance: -8},
			{Category: "High", Variance: 11},
			{Category: "Edge", Variance: 5},
		}
		m := analytics.Metrics{EquityIndex: 90, DistributionScore: 90, DiversityIndex: 90}

		Convey("When alerts are generated", func() {
			alerts := analytics.GenerateAlerts(data, m, analytics.DefaultConfig(), fixedNow)

			Convey("Then each band maps to its severity and the edge is excluded", func() {
				So(alerts, ShouldHaveLength, 3)
				So(alerts[0].ID, ShouldEqual, "variance-0")
				So(alerts[0].Severity, ShouldEqual, analytics.SeverityLow)
				So(alerts[0].Recommendation, ShouldEqual, "Consider measures to reduce over-representation")
				So(alerts[1].Severity, ShouldEqual, analytics.SeverityMedium)
				So(alerts[1].Recommendation, ShouldEqual, "Implement strategies to increase representation")
				So(alerts[1].Message, ShouldEqual, "Distribution variance of -8.0% exceeds threshold")
				So(alerts[2].ID, ShouldEqual, "variance-2")
				So(alerts[2].Severity, ShouldEqual, analytics.SeverityHigh)
				So(alerts[2].Timestamp.Equal(fixedNow), ShouldBeTrue)
			})

			Convey("And the recommendations name the wide categories and escalate", func() {
				recs := analytics.GenerateRecommendations(data, m, alerts)
				So(recs, ShouldResemble, []string{
					"Focus on balancing representation in: Low, Medium, High",
					"Address high-priority distribution issues immediately",
				})
			})
		})

		Convey("When the configured threshold is raised", func() {
			cfg := analytics.DefaultConfig()
			cfg.AlertThresholds.Variance = 10
			alerts := analytics.GenerateAlerts(data, m, cfg, fixedNow)

			Convey("Then only variances above it alert", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Category, ShouldEqual, "High")
			})
		})
	})

	Convey("Given low overall scores", t, func() {
		cases := []struct {
			m        analytics.Metrics
			equity   analytics.Severity
			distrib  analytics.Severity
			expected int
		}{
			{analytics.Metrics{EquityIndex: 60, DistributionScore: 70}, analytics.SeverityMedium, analytics.SeverityMedium, 2},
			{analytics.Metrics{EquityIndex: 40, DistributionScore: 50}, analytics.SeverityHigh, analytics.SeverityHigh, 2},
		}

		for _, c := range cases {
			alerts := analytics.GenerateAlerts(nil, c.m, analytics.DefaultConfig(), fixedNow)
			So(alerts, ShouldHaveLength, c.expected)
			So(alerts[0].ID, ShouldEqual, "equity-low")
			So(alerts[0].Category, ShouldEqual, "Overall Equity")
			So(alerts[0].Severity, ShouldEqual, c.equity)
			So(alerts[1].ID, ShouldEqual, "distribution-low")
			So(alerts[1].Category, ShouldEqual, "Distribution Alignment")
			So(alerts[1].Severity, ShouldEqual, c.distrib)
		}
	})

	Convey("Given metrics failing every general rule", t, func() {
		m := analytics.Metrics{EquityIndex: 10, DistributionScore: 10, DiversityIndex: 10}
		data := []analytics.DataPoint{{Category: "A", Variance: 1, Trend: analytics.Decreasing}}

		Convey("Then all applicable rules fire in order", func() {
			recs := analytics.GenerateRecommendations(data, m, nil)
			So(recs, ShouldResemble, []string{
				"Implement targeted outreach programs for underrepresented groups",
				"Review and adjust distribution targets based on current data",
				"Develop strategies to increase overall diversity",
				"Investigate declining trends in: A",
			})
		})
	})
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	Convey("Given two equal, on-target categories", t, func() {
		data := []analytics.DataPoint{
			{Category: "A", Target: 50, Actual: 50, Variance: 0, Trend: analytics.Stable},
			{Category: "B", Target: 50, Actual: 50, Variance: 0, Trend: analytics.Stable},
		}

		Convey("When analyzed", func() {
			report, err := newAnalyzer().Analyze(ctx, data, "", analytics.DefaultConfig())

			Convey("Then every score is perfect and nothing alerts", func() {
				So(err, ShouldBeNil)
				So(report.Metrics.EquityIndex, ShouldEqual, 100.0)
				So(report.Metrics.DistributionScore, ShouldEqual, 100.0)
				So(report.Metrics.TargetAlignment, ShouldEqual, 100.0)
				So(report.Metrics.DiversityIndex, ShouldAlmostEqual, 100.0, 1e-9)
				So(report.Alerts, ShouldBeEmpty)
				So(report.Recommendations, ShouldBeEmpty)
				So(report.CompositeScore, ShouldAlmostEqual, 100.0, 1e-9)
				So(report.Timeframe, ShouldEqual, analytics.DefaultTimeframe)
				So(report.Timestamp.Equal(fixedNow), ShouldBeTrue)
			})
		})
	})

	Convey("Given a single category with variance 12", t, func() {
		data := []analytics.DataPoint{{Category: "A", Target: 20, Actual: 32, Variance: 12, Trend: analytics.Increasing}}

		Convey("When analyzed", func() {
			report, err := newAnalyzer().Analyze(ctx, data, "7d", analytics.DefaultConfig())

			Convey("Then exactly one high alert names that category", func() {
				So(err, ShouldBeNil)
				var forCategory []analytics.Alert
				for _, a := range report.Alerts {
					if a.Category == "A" {
						forCategory = append(forCategory, a)
					}
				}
				So(forCategory, ShouldHaveLength, 1)
				So(forCategory[0].Severity, ShouldEqual, analytics.SeverityHigh)
				So(forCategory[0].Message, ShouldEqual, "Distribution variance of 12.0% exceeds threshold")
				So(report.Timeframe, ShouldEqual, "7d")
			})
		})
	})

	Convey("Given the sample dataset", t, func() {
		report, err := newAnalyzer().Analyze(ctx, analytics.SampleDataset(), "30d", analytics.DefaultConfig())

		Convey("Then the report matches the worked figures", func() {
			So(err, ShouldBeNil)
			So(report.Alerts, ShouldHaveLength, 1)
			So(report.Alerts[0].ID, ShouldEqual, "equity-low")
			So(report.Alerts[0].Severity, ShouldEqual, analytics.SeverityMedium)
			So(report.Alerts[0].Message, ShouldEqual, "Equity index of 51.0 is below acceptable threshold")
			So(report.Recommendations, ShouldResemble, []string{
				"Implement targeted outreach programs for underrepresented groups",
				"Investigate declining trends in: Other",
			})
			So(report.Trends, ShouldHaveLength, 5)
			So(report.CompositeScore, ShouldAlmostEqual, 76.8, 1e-9)
		})
	})

	Convey("Given a config that sets only the alert threshold", t, func() {
		partial := analytics.Config{AlertThresholds: analytics.Thresholds{Variance: 50}}
		report, err := newAnalyzer().Analyze(ctx, analytics.SampleDataset(), "30d", partial)

		Convey("Then the default weightings still produce the composite score", func() {
			So(err, ShouldBeNil)
			So(report.CompositeScore, ShouldAlmostEqual, 76.8, 1e-9)
		})
	})

	Convey("Given an empty config", t, func() {
		report, err := newAnalyzer().Analyze(ctx, analytics.SampleDataset(), "30d", analytics.Config{})

		Convey("Then it behaves as the default config", func() {
			So(err, ShouldBeNil)
			So(report.Alerts, ShouldHaveLength, 1)
			So(report.CompositeScore, ShouldAlmostEqual, 76.8, 1e-9)
		})
	})

	Convey("Given a config with its own weightings", t, func() {
		cfg := analytics.Config{Weightings: analytics.Weightings{Equity: 1}}
		merged := cfg.WithDefaults(analytics.DefaultConfig())

		Convey("Then they are kept and the thresholds filled in", func() {
			So(merged.Weightings, ShouldResemble, analytics.Weightings{Equity: 1})
			So(merged.AlertThresholds, ShouldResemble, analytics.DefaultConfig().AlertThresholds)
		})
	})

	Convey("Given invalid input", t, func() {
		a := newAnalyzer()
		cases := map[string][]analytics.DataPoint{
			"empty":          nil,
			"blank category": {{Category: "", Target: 1, Actual: 1}},
			"NaN actual":     {{Category: "A", Target: 1, Actual: math.NaN()}},
			"infinite":       {{Category: "A", Target: math.Inf(1), Actual: 1}},
			"unknown trend":  {{Category: "A", Target: 1, Actual: 1, Trend: "sideways"}},
			"negative target": {
				{Category: "A", Target: -10, Actual: 0, Variance: 10},
				{Category: "B", Target: 5, Actual: 5},
			},
			"negative actual": {{Category: "A", Target: 10, Actual: -1, Variance: -11}},
		}

		for name, data := range cases {
			report, err := a.Analyze(ctx, data, "30d", analytics.DefaultConfig())
			Convey("Then "+name+" input is rejected without a report", func() {
				So(errors.Is(err, analytics.ErrInvalidInput), ShouldBeTrue)
				So(report, ShouldResemble, analytics.Report{})
			})
		}
	})

	Convey("Given a point without a trend", t, func() {
		data := []analytics.DataPoint{{Category: "A", Target: 50, Actual: 50}}
		report, err := newAnalyzer().Analyze(ctx, data, "", analytics.DefaultConfig())

		Convey("Then it is treated as stable", func() {
			So(err, ShouldBeNil)
			So(report.Trends[0].Direction, ShouldEqual, analytics.Stable)
		})
	})

	Convey("Given an analyzer with simulated latency", t, func() {
		Convey("When the context is canceled first", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := newAnalyzer(analytics.WithSimulatedLatency(time.Hour)).
				Analyze(cctx, analytics.SampleDataset(), "", analytics.DefaultConfig())

			Convey("Then the analysis is abandoned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the delay elapses", func() {
			start := time.Now()
			_, err := newAnalyzer(analytics.WithSimulatedLatency(5*time.Millisecond)).
				Analyze(ctx, analytics.SampleDataset(), "", analytics.DefaultConfig())

			Convey("Then the report is produced after the delay", func() {
				So(err, ShouldBeNil)
				So(time.Since(start) >= 5*time.Millisecond, ShouldBeTrue)
			})
		})
	})
}

func TestParseDirection(t *testing.T) {
	Convey("Given trend labels", t, func() {
		d, err := analytics.ParseDirection(" Increasing ")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, analytics.Increasing)

		d, err = analytics.ParseDirection("")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, analytics.Stable)

		_, err = analytics.ParseDirection("up")
		So(errors.Is(err, analytics.ErrInvalidInput), ShouldBeTrue)
	})
}
