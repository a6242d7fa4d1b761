package analytics

// SampleDataset returns the demonstration dataset shown by the monitor panel.
func SampleDataset() []DataPoint {
	return []DataPoint{
		{Category: "Asian", Target: 25, Actual: 22, Variance: -3, Trend: Stable},
		{Category: "Black", Target: 20, Actual: 18, Variance: -2, Trend: Increasing},
		{Category: "Hispanic", Target: 30, Actual: 35, Variance: 5, Trend: Increasing},
		{Category: "White", Target: 20, Actual: 21, Variance: 1, Trend: Stable},
		{Category: "Other", Target: 5, Actual: 4, Variance: -1, Trend: Decreasing},
	}
}
