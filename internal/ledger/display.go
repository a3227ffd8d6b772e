package ledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/contract"
	"github.com/carstonks/options-engine/internal/model"
	"github.com/carstonks/options-engine/internal/pricing"
)

// dollars formats whole currency units: $50,000.
var dollars = &money.Formatter{
	Fraction: 0,
	Decimal:  ".",
	Thousand: ",",
	Grapheme: "$",
	Template: "$1",
}

// FormatMoney renders an amount rounded to whole dollars.
func FormatMoney(amount decimal.Decimal) string {
	return dollars.Format(amount.Round(0).IntPart())
}

// FormatProfitLoss renders a P/L against its cost basis the way the
// portfolio shows it: "+$50,000 (27.78%)" or "-$1,000 (-10.00%)".
func FormatProfitLoss(pl, basis decimal.Decimal) string {
	sign := ""
	if !pl.IsNegative() {
		sign = "+"
	}
	return sign + FormatMoney(pl) + " (" + percentOf(pl, basis) + "%)"
}

// Summarize decorates a position with its strike, P/L and display strings.
func Summarize(p model.Position) model.PositionSummary {
	pl := p.ProfitLoss()
	return model.PositionSummary{
		Position:      p,
		StrikePrice:   pricing.StrikePrice(p.EntryPrice, p.Type, p.TargetPercentage),
		ProfitLoss:    pl,
		ProfitDisplay: FormatProfitLoss(pl, p.Premium),
		Target:        contract.Describe(p.Type, p.TargetPercentage),
	}
}

// Portfolio builds the read model for st.
func Portfolio(st State) model.Portfolio {
	summaries := make([]model.PositionSummary, 0, len(st.Positions))
	for _, p := range st.Positions {
		summaries = append(summaries, Summarize(p))
	}
	return model.Portfolio{
		Stats:     st.Stats,
		Aggregate: Aggregate(st.Positions),
		Positions: summaries,
	}
}
