package stats

import "math"

// Percentile returns the nearest-rank percentile of an ascending-sorted slice:
// sorted[round((n-1)*q)]. Rounding is half away from zero (math.Round) and is
// pinned: tier and score thresholds downstream are sensitive to which index is
// picked, so this must not change. Returns 0 for an empty slice. The input is
// not sorted here; callers pass an already sorted series.
func Percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Round(float64(len(sorted)-1) * q))
	return sorted[idx]
}

// RemoveOutliers drops prices outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. It is a
// no-op below MinOutlierSamples observations, and it reverts to the unfiltered
// input whenever filtering would retain less than 70% of the points: a series
// that loses that much is usually genuinely bimodal, not noisy.
func RemoveOutliers(sorted []float64) ([]float64, int) {
	if len(sorted) < MinOutlierSamples {
		out := make([]float64, len(sorted))
		copy(out, sorted)
		return out, 0
	}

	q1 := Percentile(sorted, 0.25)
	q3 := Percentile(sorted, 0.75)
	iqr := q3 - q1

	lower := q1 - IQRMultiplier*iqr
	upper := q3 + IQRMultiplier*iqr

	filtered := make([]float64, 0, len(sorted))
	for _, p := range sorted {
		if p >= lower && p <= upper {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) < len(sorted)*7/10 {
		out := make([]float64, len(sorted))
		copy(out, sorted)
		return out, 0
	}
	return filtered, len(sorted) - len(filtered)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
