// Package model defines the core domain types shared across the options engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OptionType is the direction of an option contract.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// ErrInvalidOptionType is returned when a string is neither CALL nor PUT.
var ErrInvalidOptionType = errors.New("model: option type must be CALL or PUT")

// ParseOptionType converts a wire value into an OptionType.
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(s) {
	case Call, Put:
		return OptionType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOptionType, s)
}

// Valid reports whether t is one of the two variants.
func (t OptionType) Valid() bool {
	return t == Call || t == Put
}

// PricePoint is one observation in a car's price history.
type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Car is the underlying asset of an option: a car with a chronological
// price history. CurrentPrice is the live value used for pricing.
type Car struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	ImageURL     string          `json:"imageUrl"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	PriceHistory []PricePoint    `json:"priceHistory"`
}

// ErrInvalidSeries is returned by Car.Validate for empty histories or
// non-positive prices.
var ErrInvalidSeries = errors.New("model: invalid price series")

// Validate checks the price series invariants: at least one point and
// strictly positive prices.
func (c Car) Validate() error {
	if len(c.PriceHistory) == 0 {
		return fmt.Errorf("%w: car %s has no price history", ErrInvalidSeries, c.ID)
	}
	if !c.CurrentPrice.IsPositive() {
		return fmt.Errorf("%w: car %s current price %s", ErrInvalidSeries, c.ID, c.CurrentPrice)
	}
	for _, p := range c.PriceHistory {
		if !p.Price.IsPositive() {
			return fmt.Errorf("%w: car %s price %s on %s", ErrInvalidSeries, c.ID, p.Price, p.Date)
		}
	}
	return nil
}

// TradeParameters are the user's selections for a prospective trade.
type TradeParameters struct {
	Type             OptionType `json:"type"`
	ExpiryMonths     int        `json:"expiryMonths"`
	TargetPercentage int        `json:"percentageChange"`
	Quantity         int        `json:"quantity"`
}

// Position is an open option position. Premium is the total paid across
// Quantity contracts. CurrentValue is fixed at open time.
type Position struct {
	ID               string          `json:"id"`
	CarID            string          `json:"carId"`
	Type             OptionType      `json:"type"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	ExpiryDate       time.Time       `json:"expiryDate"`
	TargetPercentage int             `json:"percentageChange"`
	Premium          decimal.Decimal `json:"premium"`
	Quantity         int             `json:"quantity"`
}

// ProfitLoss is the unrealized P/L: currentValue - premium.
func (p Position) ProfitLoss() decimal.Decimal {
	return p.CurrentValue.Sub(p.Premium)
}

// AccountStats holds the stored account counters. Aggregates over
// positions are never stored here; see Aggregate.
type AccountStats struct {
	CashBalance     decimal.Decimal `json:"cashBalance"`
	ActivePositions int             `json:"activePositions"`
	TotalTrades     int             `json:"totalTrades"`
}

// Aggregate is the report-only summary over the live position set.
type Aggregate struct {
	TotalInvested     decimal.Decimal `json:"totalInvested"`
	TotalCurrentValue decimal.Decimal `json:"totalValue"`
	TotalProfitLoss   decimal.Decimal `json:"totalProfitLoss"`
	PercentageReturn  string          `json:"percentageReturn"`
}

// Portfolio is the read model returned to the UI.
type Portfolio struct {
	Stats     AccountStats      `json:"stats"`
	Aggregate Aggregate         `json:"aggregate"`
	Positions []PositionSummary `json:"positions"`
}

// PositionSummary decorates a position with display values.
type PositionSummary struct {
	Position
	StrikePrice   decimal.Decimal `json:"strikePrice"`
	ProfitLoss    decimal.Decimal `json:"profitLoss"`
	ProfitDisplay string          `json:"profitDisplay"`
	Target        string          `json:"target"`
}
