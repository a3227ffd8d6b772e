// Package correlation implements position limits that account for
// correlation between cars of the same brand.
//
// Cars of one marque tend to move together, so a trader holding contracts
// on every Ferrari carries concentrated risk. The limiter caps open
// contracts per car and across each brand.
package correlation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carstonks/options-engine/internal/model"
)

var (
	// ErrPerCarLimitExceeded is returned when a trade would push the open
	// contracts on a single car beyond the per-car maximum.
	ErrPerCarLimitExceeded = errors.New("correlation: per-car contract limit exceeded")

	// ErrBrandLimitExceeded is returned when a trade would push the open
	// contracts across one brand beyond the brand maximum.
	ErrBrandLimitExceeded = errors.New("correlation: brand contract limit exceeded")
)

// PositionLimiter enforces contract limits. A zero limit is disabled.
type PositionLimiter struct {
	// MaxPerCar is the maximum open contracts on any single car.
	MaxPerCar int

	// MaxPerBrand is the maximum open contracts across all cars of a brand.
	MaxPerBrand int
}

// NewPositionLimiter creates a limiter. Negative limits are treated as 0.
func NewPositionLimiter(maxPerCar, maxPerBrand int) *PositionLimiter {
	return &PositionLimiter{
		MaxPerCar:   max(maxPerCar, 0),
		MaxPerBrand: max(maxPerBrand, 0),
	}
}

// BrandOf resolves a car id to its brand.
type BrandOf func(carID string) (string, bool)

// CheckLimit validates whether buying quantity contracts on target keeps
// the open positions within limits.
func (l *PositionLimiter) CheckLimit(target model.Car, quantity int, open []model.Position, brandOf BrandOf) error {
	if l == nil {
		return nil
	}

	perCar := quantity
	perBrand := quantity
	for _, p := range open {
		if p.CarID == target.ID {
			perCar += p.Quantity
			perBrand += p.Quantity
			continue
		}
		if brand, ok := brandOf(p.CarID); ok && strings.EqualFold(brand, target.Brand) {
			perBrand += p.Quantity
		}
	}

	if l.MaxPerCar > 0 && perCar > l.MaxPerCar {
		return fmt.Errorf("%w: %d contracts on %s (max %d)", ErrPerCarLimitExceeded, perCar, target.ID, l.MaxPerCar)
	}
	if l.MaxPerBrand > 0 && perBrand > l.MaxPerBrand {
		return fmt.Errorf("%w: %d contracts on %s (max %d)", ErrBrandLimitExceeded, perBrand, target.Brand, l.MaxPerBrand)
	}
	return nil
}
