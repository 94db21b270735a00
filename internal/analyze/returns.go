package analyze

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
)

// Returns holds the money outcome for one holding. All currency values are
// decimals; float64 would drift over repeated percent math.
type Returns struct {
	CostBasis   decimal.Decimal `json:"cost_basis"`
	CurrentNAV  decimal.Decimal `json:"current_nav"`
	Invested    decimal.Decimal `json:"invested"` // amount originally put in
	Shares      decimal.Decimal `json:"shares"`
	MarketValue decimal.Decimal `json:"market_value"`
	ReturnRate  decimal.Decimal `json:"return_rate"`  // percent since cost basis
	TotalProfit decimal.Decimal `json:"total_profit"` // currency
	TodayChange decimal.Decimal `json:"today_change"` // percent
	TodayProfit decimal.Decimal `json:"today_profit"` // currency
}

var hundred = decimal.NewFromInt(100)

// CalcReturns computes gain/loss for a holding bought at costBasis with the
// given invested amount, against the latest point of history.
func CalcReturns(history []datasource.NavPoint, costBasis, amount decimal.Decimal) (Returns, error) {
	if len(history) == 0 {
		return Returns{}, errors.New("empty history")
	}
	if costBasis.IsZero() || costBasis.IsNegative() {
		return Returns{}, errors.New("cost basis must be positive")
	}
	latest := history[len(history)-1]
	nav := decimal.NewFromFloat(latest.NAV)
	todayChange := decimal.NewFromFloat(latest.ChangeRate)

	returnRate := nav.Sub(costBasis).Div(costBasis).Mul(hundred)
	shares := amount.Div(costBasis)
	return Returns{
		CostBasis:   costBasis,
		CurrentNAV:  nav,
		Invested:    amount,
		Shares:      shares.Round(2),
		MarketValue: shares.Mul(nav).Round(2),
		ReturnRate:  returnRate.Round(2),
		TotalProfit: amount.Mul(returnRate).Div(hundred).Round(2),
		TodayChange: todayChange,
		TodayProfit: amount.Mul(todayChange).Div(hundred).Round(2),
	}, nil
}
