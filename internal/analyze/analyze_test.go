package analyze

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
)

func points(navs ...float64) []datasource.NavPoint {
	out := make([]datasource.NavPoint, len(navs))
	for i, v := range navs {
		out[i] = datasource.NavPoint{NAV: v}
	}
	return out
}

func TestCalcReturnsDayGain(t *testing.T) {
	// Bought at 1.00 with 10000 invested; NAV now 1.02 after a +2% day.
	history := []datasource.NavPoint{
		{Date: "2024-03-14", NAV: 1.00, ChangeRate: -0.5},
		{Date: "2024-03-15", NAV: 1.02, ChangeRate: 2.0},
	}
	r, err := CalcReturns(history, decimal.NewFromFloat(1.0), decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	if !r.ReturnRate.Equal(decimal.NewFromFloat(2.0)) {
		t.Fatalf("return rate = %s, want 2", r.ReturnRate)
	}
	if !r.TotalProfit.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("total profit = %s, want 200", r.TotalProfit)
	}
	if !r.TodayProfit.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("today profit = %s, want 200", r.TodayProfit)
	}
	if !r.Shares.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("shares = %s, want 10000", r.Shares)
	}
	if !r.MarketValue.Equal(decimal.NewFromInt(10200)) {
		t.Fatalf("market value = %s, want 10200", r.MarketValue)
	}
}

func TestCalcReturnsLoss(t *testing.T) {
	history := []datasource.NavPoint{{NAV: 1.35, ChangeRate: -1.0}}
	r, err := CalcReturns(history, decimal.NewFromFloat(1.5), decimal.NewFromInt(5000))
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	if !r.ReturnRate.Equal(decimal.NewFromFloat(-10)) {
		t.Fatalf("return rate = %s, want -10", r.ReturnRate)
	}
	if !r.TotalProfit.Equal(decimal.NewFromInt(-500)) {
		t.Fatalf("total profit = %s, want -500", r.TotalProfit)
	}
}

func TestCalcReturnsRejectsBadInput(t *testing.T) {
	if _, err := CalcReturns(nil, decimal.NewFromInt(1), decimal.NewFromInt(1)); err == nil {
		t.Fatalf("expected error for empty history")
	}
	if _, err := CalcReturns(points(1.0), decimal.Zero, decimal.NewFromInt(1)); err == nil {
		t.Fatalf("expected error for zero cost basis")
	}
}

func TestClassifyTrendRising(t *testing.T) {
	// Strictly increasing NAVs stack MA5 > MA10 > MA20.
	navs := make([]float64, 25)
	for i := range navs {
		navs[i] = 1.0 + float64(i)*0.01
	}
	tr := ClassifyTrend(points(navs...))
	if tr.Label != TrendRising {
		t.Fatalf("label = %s, want rising", tr.Label)
	}
	if tr.Strength <= 0 {
		t.Fatalf("strength should be positive, got %v", tr.Strength)
	}
}

func TestClassifyTrendFalling(t *testing.T) {
	navs := make([]float64, 25)
	for i := range navs {
		navs[i] = 2.0 - float64(i)*0.01
	}
	tr := ClassifyTrend(points(navs...))
	if tr.Label != TrendFalling {
		t.Fatalf("label = %s, want falling", tr.Label)
	}
}

func TestClassifyTrendChoppy(t *testing.T) {
	navs := make([]float64, 25)
	for i := range navs {
		if i%2 == 0 {
			navs[i] = 1.0
		} else {
			navs[i] = 1.1
		}
	}
	tr := ClassifyTrend(points(navs...))
	if tr.Label != TrendChoppy {
		t.Fatalf("label = %s, want choppy", tr.Label)
	}
}

func TestClassifyTrendShortSeriesStaysChoppy(t *testing.T) {
	// A steady climb over fewer than 20 points is not enough evidence of a
	// trend: the MA20 window is not yet full.
	tr := ClassifyTrend(points(1.00, 1.01, 1.02, 1.03, 1.04, 1.05))
	if tr.Label != TrendChoppy {
		t.Fatalf("label = %s, want choppy", tr.Label)
	}
}

func TestClassifyTrendInsufficient(t *testing.T) {
	tr := ClassifyTrend(points(1.0, 1.1))
	if tr.Label != TrendInsufficient {
		t.Fatalf("label = %s, want insufficient", tr.Label)
	}
}

func TestForecastFollowsLinearTrend(t *testing.T) {
	navs := make([]float64, 15)
	for i := range navs {
		navs[i] = 1.0 + float64(i)*0.01
	}
	fc := Forecast(points(navs...), 5)
	if len(fc) != 5 {
		t.Fatalf("forecast len = %d", len(fc))
	}
	if fc[0].Day != 1 || fc[4].Day != 5 {
		t.Fatalf("days numbered wrong: %+v", fc)
	}
	// A rising line must forecast positive changes that grow with the day.
	for i, p := range fc {
		if p.Change <= 0 {
			t.Fatalf("point %d: change %v, want > 0", i, p.Change)
		}
	}
	if fc[4].Change <= fc[0].Change {
		t.Fatalf("later days should project larger change: %+v", fc)
	}
}

func TestForecastFlatSeries(t *testing.T) {
	navs := make([]float64, 12)
	for i := range navs {
		navs[i] = 1.5
	}
	fc := Forecast(points(navs...), 3)
	for _, p := range fc {
		if p.Change != 0 {
			t.Fatalf("flat series must forecast zero change, got %+v", p)
		}
		if p.NAV != 1.5 {
			t.Fatalf("flat series must forecast the same NAV, got %+v", p)
		}
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	if fc := Forecast(points(1.0, 1.1, 1.2), 5); fc != nil {
		t.Fatalf("expected nil forecast for short history, got %+v", fc)
	}
}

func TestAverageChange(t *testing.T) {
	fc := []ForecastPoint{{Change: 1.0}, {Change: 2.0}, {Change: 3.0}}
	if got := AverageChange(fc); got != 2.0 {
		t.Fatalf("average = %v, want 2", got)
	}
	if got := AverageChange(nil); got != 0 {
		t.Fatalf("empty average = %v, want 0", got)
	}
}
