package analytics

import "math"

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func absVariances(data []DataPoint) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = math.Abs(d.Variance)
	}
	return out
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// EquityIndex penalizes both the average and the worst absolute variance,
// the worst case at half the weight of the average.
func EquityIndex(data []DataPoint) float64 {
	if len(data) == 0 {
		return 0
	}
	vs := absVariances(data)
	maxV := vs[0]
	for _, v := range vs[1:] {
		maxV = math.Max(maxV, v)
	}
	return clamp(0, 100, 100-(mean(vs)*10+maxV*5))
}

// DistributionScore is the mean per-category closeness of actual to target.
func DistributionScore(data []DataPoint) float64 {
	if len(data) == 0 {
		return 0
	}
	scores := make([]float64, len(data))
	for i, d := range data {
		scores[i] = math.Max(0, 100-math.Abs(d.Actual-d.Target)*5)
	}
	return mean(scores)
}

// VarianceThreshold is twice the population standard deviation of the
// absolute variances, kept within [3,10]. Empty input yields 5.
func VarianceThreshold(data []DataPoint) float64 {
	if len(data) == 0 {
		return 5.0
	}
	vs := absVariances(data)
	m := mean(vs)
	var sq float64
	for _, v := range vs {
		sq += (v - m) * (v - m)
	}
	stdDev := math.Sqrt(sq / float64(len(vs)))
	return clamp(3.0, 10.0, stdDev*2)
}

// TargetAlignment compares the summed actuals to the summed targets. A
// non-positive target total yields 0.
func TargetAlignment(data []DataPoint) float64 {
	if len(data) == 0 {
		return 0
	}
	var totalTarget, totalActual float64
	for _, d := range data {
		totalTarget += d.Target
		totalActual += d.Actual
	}
	if totalTarget <= 0 {
		return 0
	}
	overall := math.Abs(totalActual-totalTarget) / totalTarget * 100
	return clamp(0, 100, 100-overall*5)
}

// DiversityIndex is the Shannon entropy of the actual shares normalized by
// log(n) and scaled to [0,100]. A non-positive actual total or a single
// category yields 0.
func DiversityIndex(data []DataPoint) float64 {
	if len(data) == 0 {
		return 0
	}
	var total float64
	for _, d := range data {
		total += d.Actual
	}
	if total <= 0 {
		return 0
	}
	var h float64
	for _, d := range data {
		if p := d.Actual / total; p > 0 {
			h -= p * math.Log(p)
		}
	}
	maxH := math.Log(float64(len(data)))
	if maxH <= 0 {
		return 0
	}
	return clamp(0, 100, h/maxH*100)
}

// Compute derives all five metrics.
func Compute(data []DataPoint) Metrics {
	return Metrics{
		EquityIndex:       EquityIndex(data),
		DistributionScore: DistributionScore(data),
		VarianceThreshold: VarianceThreshold(data),
		TargetAlignment:   TargetAlignment(data),
		DiversityIndex:    DiversityIndex(data),
	}
}

// CompositeScore weights equity, distribution and alignment into one number.
func CompositeScore(m Metrics, w Weightings) float64 {
	return m.EquityIndex*w.Equity + m.DistributionScore*w.Distribution + m.TargetAlignment*w.Alignment
}
