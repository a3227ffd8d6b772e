// Package contract handles car option contract terms: the enumerated
// expiries and target percentages a trade may select, parameter
// validation, and expiry date arithmetic.
package contract

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/carstonks/options-engine/internal/model"
)

var (
	// ExpiryMonths are the selectable contract durations.
	ExpiryMonths = []int{1, 3, 6}

	// TargetPercentages are the selectable strike distances.
	TargetPercentages = []int{1, 2, 5, 10, 15, 30}
)

var (
	ErrInvalidExpiry   = errors.New("contract: unsupported expiry")
	ErrInvalidTarget   = errors.New("contract: unsupported target percentage")
	ErrInvalidQuantity = errors.New("contract: quantity must be at least 1")
)

// Validate checks trade parameters against the enumerated sets.
// Pricing assumes parameters passed this check.
func Validate(p model.TradeParameters) error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidOptionType, p.Type)
	}
	if !slices.Contains(ExpiryMonths, p.ExpiryMonths) {
		return fmt.Errorf("%w: %d months (allowed %v)", ErrInvalidExpiry, p.ExpiryMonths, ExpiryMonths)
	}
	if !slices.Contains(TargetPercentages, p.TargetPercentage) {
		return fmt.Errorf("%w: %d%% (allowed %v)", ErrInvalidTarget, p.TargetPercentage, TargetPercentages)
	}
	if p.Quantity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, p.Quantity)
	}
	return nil
}

// ParseParams builds TradeParameters from raw form values. An empty
// quantity defaults to 1.
func ParseParams(optionType, expiry, target, quantity string) (model.TradeParameters, error) {
	var p model.TradeParameters

	t, err := model.ParseOptionType(optionType)
	if err != nil {
		return p, err
	}
	p.Type = t

	if p.ExpiryMonths, err = strconv.Atoi(expiry); err != nil {
		return p, fmt.Errorf("%w: %q", ErrInvalidExpiry, expiry)
	}
	if p.TargetPercentage, err = strconv.Atoi(target); err != nil {
		return p, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	p.Quantity = 1
	if quantity != "" {
		if p.Quantity, err = strconv.Atoi(quantity); err != nil {
			return p, fmt.Errorf("%w: %q", ErrInvalidQuantity, quantity)
		}
	}

	return p, Validate(p)
}

// ExpiryDate adds calendar months to now. Day overflow normalizes forward
// (Jan 31 + 1 month lands in early March), as calendar arithmetic does.
func ExpiryDate(now time.Time, months int) time.Time {
	return now.AddDate(0, months, 0)
}

// Describe renders the strike distance relative to entry,
// e.g. "5% above entry".
func Describe(t model.OptionType, targetPercentage int) string {
	dir := "above"
	if t == model.Put {
		dir = "below"
	}
	return fmt.Sprintf("%d%% %s entry", targetPercentage, dir)
}
