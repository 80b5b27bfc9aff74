package stats

// Trend fits an ordinary least-squares line of price against observation
// index and returns the slope: sum((x-x̄)(y-ȳ)) / sum((x-x̄)²). A flat series
// yields 0, as does anything with fewer than two points.
func Trend(prices []float64) float64 {
	n := float64(len(prices))
	if n < 2 {
		return 0
	}

	xMean := (n - 1) / 2
	yMean := mean(prices)

	num := 0.0
	den := 0.0
	for i, p := range prices {
		xd := float64(i) - xMean
		num += xd * (p - yMean)
		den += xd * xd
	}

	if den == 0 {
		return 0
	}
	return num / den
}
