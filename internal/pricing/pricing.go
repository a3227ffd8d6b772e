// Package pricing implements the heuristic option pricing model used to
// quote premiums and projected profits on car price options.
//
// The premium grows with:
//   - the car's value (0.5% of the current price as a base)
//   - time to expiry (square-root scaling)
//   - distance of the target percentage from zero
//   - historical volatility of the price series
//   - directional skew from the trend (uptrends make CALLs dearer,
//     downtrends make PUTs dearer)
//
// All functions are pure. Intermediate math runs in float64, matching the
// reference model bit for bit, and results are immediately converted to
// decimal. Rounding is half-up.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/model"
)

var (
	// MinPremium is the lowest premium charged per contract.
	MinPremium = decimal.NewFromInt(1000)

	// BaseRate is the share of the car value used as the base premium.
	BaseRate = 0.005

	// MinVolatility floors computed volatility for flat series.
	MinVolatility = 0.05

	// FallbackVolatility is used when there are fewer than two points.
	FallbackVolatility = 0.10

	// FallbackTrend replaces the trend ratio when it cannot be computed.
	FallbackTrend = 0.1

	// PutSkew is the extra offset added to the PUT type multiplier.
	// Pending product confirmation; preserved as-is.
	PutSkew = 0.1

	// VolatilityScale scales the mean return into a volatility figure.
	VolatilityScale = 10.0

	// StretchFactor is how much further than the target the projected
	// price moves in PotentialProfit.
	StretchFactor = 1.5
)

// Volatility estimates volatility as the absolute mean of consecutive
// fractional returns scaled by VolatilityScale, floored at MinVolatility.
// Series with fewer than two points return FallbackVolatility.
func Volatility(history []model.PricePoint) float64 {
	if len(history) < 2 {
		return FallbackVolatility
	}

	var sum float64
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Price.InexactFloat64()
		cur := history[i].Price.InexactFloat64()
		sum += (cur - prev) / prev
	}
	mean := sum / float64(len(history)-1)

	return math.Max(MinVolatility, math.Abs(mean)*VolatilityScale)
}

// typeMultiplier returns the directional skew for an option type. With a
// single point the trend is unknown and both types get 1 + FallbackTrend.
func typeMultiplier(history []model.PricePoint, currentPrice float64, t model.OptionType) float64 {
	if len(history) < 2 {
		return 1 + FallbackTrend
	}
	first := history[0].Price.InexactFloat64()
	trend := (currentPrice - first) / first
	if t == model.Call {
		return 1 + trend
	}
	return 1 - trend + PutSkew
}

// PremiumPerContract computes the premium for a single contract:
//
//	round(base * type * sqrt(expiry) * (target/5) * (1 + volatility))
//
// floored at MinPremium. Callers must validate parameters first.
func PremiumPerContract(
	history []model.PricePoint,
	currentPrice decimal.Decimal,
	t model.OptionType,
	expiryMonths, targetPercentage int,
) decimal.Decimal {
	price := currentPrice.InexactFloat64()

	base := price * BaseRate
	typeMult := typeMultiplier(history, price, t)
	expiryMult := math.Sqrt(float64(expiryMonths))
	percentageMult := float64(targetPercentage) / 5
	volMult := 1 + Volatility(history)

	premium := decimal.NewFromFloat(roundHalfUp(base * typeMult * expiryMult * percentageMult * volMult))
	if premium.LessThan(MinPremium) {
		return MinPremium
	}
	return premium
}

// StrikePrice returns the threshold price: the current price moved by the
// target percentage up for CALLs and down for PUTs, rounded.
func StrikePrice(currentPrice decimal.Decimal, t model.OptionType, targetPercentage int) decimal.Decimal {
	return decimal.NewFromFloat(roundHalfUp(strike(currentPrice.InexactFloat64(), t, float64(targetPercentage))))
}

func strike(price float64, t model.OptionType, pct float64) float64 {
	if t == model.Call {
		return price * (1 + pct/100)
	}
	return price * (1 - pct/100)
}

// PotentialProfit projects the profit if the car moves StretchFactor times
// further than the target in the favorable direction:
//
//	(round(max(0, excess over strike) - premium)) * quantity
//
// It is a heuristic preview, not a guaranteed payout, and is negative when
// the stretched move does not cover the premium.
func PotentialProfit(
	history []model.PricePoint,
	currentPrice decimal.Decimal,
	t model.OptionType,
	expiryMonths, targetPercentage, quantity int,
) decimal.Decimal {
	premium := PremiumPerContract(history, currentPrice, t, expiryMonths, targetPercentage).InexactFloat64()
	price := currentPrice.InexactFloat64()
	pct := float64(targetPercentage)

	strikePrice := strike(price, t, pct)
	stretched := strike(price, t, pct*StretchFactor)

	excess := stretched - strikePrice
	if t == model.Put {
		excess = strikePrice - stretched
	}

	perContract := roundHalfUp(math.Max(0, excess) - premium)
	return decimal.NewFromFloat(perContract).Mul(decimal.NewFromInt(int64(quantity)))
}

// Quote bundles every preview figure the trade form displays.
type Quote struct {
	CarID              string           `json:"carId"`
	Type               model.OptionType `json:"type"`
	ExpiryMonths       int              `json:"expiryMonths"`
	TargetPercentage   int              `json:"percentageChange"`
	Quantity           int              `json:"quantity"`
	PremiumPerContract decimal.Decimal  `json:"premium"`
	TotalPremium       decimal.Decimal  `json:"totalPremium"`
	StrikePrice        decimal.Decimal  `json:"strikePrice"`
	PotentialProfit    decimal.Decimal  `json:"potentialProfit"`
	Volatility         float64          `json:"volatility"`
}

// NewQuote prices params against car. Params must already be validated.
func NewQuote(car model.Car, p model.TradeParameters) Quote {
	perContract := PremiumPerContract(car.PriceHistory, car.CurrentPrice, p.Type, p.ExpiryMonths, p.TargetPercentage)
	return Quote{
		CarID:              car.ID,
		Type:               p.Type,
		ExpiryMonths:       p.ExpiryMonths,
		TargetPercentage:   p.TargetPercentage,
		Quantity:           p.Quantity,
		PremiumPerContract: perContract,
		TotalPremium:       perContract.Mul(decimal.NewFromInt(int64(p.Quantity))),
		StrikePrice:        StrikePrice(car.CurrentPrice, p.Type, p.TargetPercentage),
		PotentialProfit:    PotentialProfit(car.PriceHistory, car.CurrentPrice, p.Type, p.ExpiryMonths, p.TargetPercentage, p.Quantity),
		Volatility:         Volatility(car.PriceHistory),
	}
}

// roundHalfUp rounds to the nearest integer with ties toward +Inf.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
