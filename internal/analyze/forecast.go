package analyze

import (
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
)

// ForecastPoint is one projected day ahead of the latest NAV.
type ForecastPoint struct {
	Day    int     `json:"day"` // 1 = next day
	NAV    float64 `json:"predicted_nav"`
	Change float64 `json:"predicted_change"` // percent vs current NAV
}

const forecastLookback = 10

// Forecast projects the NAV days forward with a least-squares line fitted to
// the last ten points, then smooths the projection with a 3-point moving
// average. It is a short-horizon hint, not a model; fewer than 5 points of
// history yield no forecast.
func Forecast(history []datasource.NavPoint, days int) []ForecastPoint {
	if len(history) < 5 || days <= 0 {
		return nil
	}
	lookback := forecastLookback
	if lookback > len(history)-1 {
		lookback = len(history) - 1
	}
	tail := history[len(history)-lookback:]

	// Fit y = a + b*x over x = 0..lookback-1.
	n := float64(len(tail))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range tail {
		x := float64(i)
		sumX += x
		sumY += p.NAV
		sumXY += x * p.NAV
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	b := (n*sumXY - sumX*sumY) / denom
	a := (sumY - b*sumX) / n

	current := history[len(history)-1].NAV
	raw := make([]float64, days)
	for i := 0; i < days; i++ {
		raw[i] = a + b*float64(len(tail)+i)
	}

	// 3-point trailing moving average over the projection.
	smoothed := make([]float64, days)
	const window = 3
	for i := range raw {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for _, v := range raw[start : i+1] {
			sum += v
		}
		smoothed[i] = sum / float64(i+1-start)
	}

	out := make([]ForecastPoint, days)
	for i, nav := range smoothed {
		change := 0.0
		if current != 0 {
			change = (raw[i] - current) / current * 100
		}
		out[i] = ForecastPoint{
			Day:    i + 1,
			NAV:    round4(nav),
			Change: round2(change),
		}
	}
	return out
}

// AverageChange is the mean predicted percent change across forecast points.
func AverageChange(points []ForecastPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Change
	}
	return round2(sum / float64(len(points)))
}
