// Package catalog provides the car price series that options are written
// on: lookup by id, filtered and sorted listings, and market trends.
package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/model"
)

// ErrCarNotFound is returned for unknown car ids.
var ErrCarNotFound = errors.New("catalog: car not found")

// Sort orders accepted by List.
const (
	SortPriceDesc   = "price-desc"
	SortPriceAsc    = "price-asc"
	SortName        = "name"
	SortPerformance = "performance"
)

// Provider supplies car price series by identifier.
type Provider interface {
	Car(id string) (model.Car, error)
	List(f Filter) []model.Car
	Brands() []string
	Years() []int
	Trends() []Trend
}

// Filter narrows and orders a listing. Zero values mean "all".
type Filter struct {
	Brand  string // case-insensitive
	Year   int
	SortBy string // defaults to SortPriceDesc
}

// Trend is one row of the dashboard's market trends table.
type Trend struct {
	Name   string          `json:"name"`
	Change float64         `json:"change"` // percent over the last period
	Price  decimal.Decimal `json:"price"`
}

// Catalog is an immutable in-memory Provider.
type Catalog struct {
	cars []model.Car
	byID map[string]int
}

// New validates cars and indexes them by id.
func New(cars []model.Car) (*Catalog, error) {
	c := &Catalog{cars: slices.Clone(cars), byID: make(map[string]int, len(cars))}
	for i, car := range cars {
		if err := car.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[car.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate car id %s", car.ID)
		}
		c.byID[car.ID] = i
	}
	return c, nil
}

// Car returns the car with the given id.
func (c *Catalog) Car(id string) (model.Car, error) {
	i, ok := c.byID[id]
	if !ok {
		return model.Car{}, fmt.Errorf("%w: %s", ErrCarNotFound, id)
	}
	return detach(c.cars[i]), nil
}

// detach copies car's price history so callers cannot write into the catalog.
func detach(car model.Car) model.Car {
	car.PriceHistory = slices.Clone(car.PriceHistory)
	return car
}

// List returns the cars matching f in the requested order.
func (c *Catalog) List(f Filter) []model.Car {
	out := make([]model.Car, 0, len(c.cars))
	for _, car := range c.cars {
		if f.Brand != "" && !strings.EqualFold(car.Brand, f.Brand) {
			continue
		}
		if f.Year != 0 && car.Year != f.Year {
			continue
		}
		out = append(out, detach(car))
	}

	switch f.SortBy {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b model.Car) int { return a.CurrentPrice.Cmp(b.CurrentPrice) })
	case SortName:
		slices.SortStableFunc(out, func(a, b model.Car) int { return strings.Compare(a.Name, b.Name) })
	case SortPerformance:
		slices.SortStableFunc(out, func(a, b model.Car) int { return Performance(b).Cmp(Performance(a)) })
	default:
		slices.SortStableFunc(out, func(a, b model.Car) int { return b.CurrentPrice.Cmp(a.CurrentPrice) })
	}
	return out
}

// Brands returns the distinct brands in catalog order.
func (c *Catalog) Brands() []string {
	var brands []string
	for _, car := range c.cars {
		if !slices.Contains(brands, car.Brand) {
			brands = append(brands, car.Brand)
		}
	}
	return brands
}

// Years returns the distinct model years, newest first.
func (c *Catalog) Years() []int {
	var years []int
	for _, car := range c.cars {
		if !slices.Contains(years, car.Year) {
			years = append(years, car.Year)
		}
	}
	slices.SortFunc(years, func(a, b int) int { return cmp.Compare(b, a) })
	return years
}

// Performance is the percentage change from the first to the last point
// of a car's price history.
func Performance(car model.Car) decimal.Decimal {
	if len(car.PriceHistory) == 0 {
		return decimal.Zero
	}
	first := car.PriceHistory[0].Price
	last := car.PriceHistory[len(car.PriceHistory)-1].Price
	return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
}

// Trends reports, per car, the change over the most recent period of its
// price history.
func (c *Catalog) Trends() []Trend {
	trends := make([]Trend, 0, len(c.cars))
	for _, car := range c.cars {
		change := 0.0
		if n := len(car.PriceHistory); n >= 2 {
			prev := car.PriceHistory[n-2].Price
			last := car.PriceHistory[n-1].Price
			change = last.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
		trends = append(trends, Trend{Name: car.Name, Change: change, Price: car.CurrentPrice})
	}
	return trends
}
