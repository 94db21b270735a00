package analyze

import (
	"math"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
)

// Label classifies the recent NAV direction.
type Label string

const (
	TrendRising       Label = "rising"
	TrendFalling      Label = "falling"
	TrendChoppy       Label = "choppy"
	TrendInsufficient Label = "insufficient data"
)

// Trend is the moving-average classification of a NAV series.
type Trend struct {
	Label      Label   `json:"label"`
	Strength   float64 `json:"strength"`   // percent change over the window
	Volatility float64 `json:"volatility"` // stddev of daily change percent
	MA5        float64 `json:"ma5"`
	MA10       float64 `json:"ma10"`
	MA20       float64 `json:"ma20"`
}

// ClassifyTrend derives the trend from MA5/MA10/MA20 alignment: a fully
// ascending stack is rising, a fully descending stack is falling, anything
// else is choppy. Needs at least 5 points, and stays choppy until 20 points
// exist so the widest average covers a full window.
func ClassifyTrend(history []datasource.NavPoint) Trend {
	if len(history) < 5 {
		return Trend{Label: TrendInsufficient}
	}
	ma5 := movingAverage(history, 5)
	ma10 := movingAverage(history, 10)
	ma20 := movingAverage(history, 20)

	label := TrendChoppy
	if len(history) >= 20 {
		switch {
		case ma5 > ma10 && ma10 > ma20:
			label = TrendRising
		case ma5 < ma10 && ma10 < ma20:
			label = TrendFalling
		}
	}

	first := history[0].NAV
	last := history[len(history)-1].NAV
	strength := 0.0
	if first != 0 {
		strength = (last - first) / first * 100
	}
	return Trend{
		Label:      label,
		Strength:   round2(strength),
		Volatility: round2(changeStddev(history)),
		MA5:        round4(ma5),
		MA10:       round4(ma10),
		MA20:       round4(ma20),
	}
}

// movingAverage averages the last window NAVs; shorter series use what exists.
func movingAverage(history []datasource.NavPoint, window int) float64 {
	if window > len(history) {
		window = len(history)
	}
	if window == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range history[len(history)-window:] {
		sum += p.NAV
	}
	return sum / float64(window)
}

func changeStddev(history []datasource.NavPoint) float64 {
	n := len(history)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, p := range history {
		mean += p.ChangeRate
	}
	mean /= float64(n)
	variance := 0.0
	for _, p := range history {
		d := p.ChangeRate - mean
		variance += d * d
	}
	// Sample stddev, matching the usual series.std() convention.
	variance /= float64(n - 1)
	return math.Sqrt(variance)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
