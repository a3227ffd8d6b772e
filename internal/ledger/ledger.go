// Package ledger implements the portfolio ledger: the set of open option
// positions and the account counters, advanced by pure transitions.
//
// Every transition takes a State and returns a new State; the input is
// never modified, so a rejected transition leaves no trace. Aggregates
// (invested, value, P/L, return) are recomputed from positions on demand
// and never stored.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/contract"
	"github.com/carstonks/options-engine/internal/model"
	"github.com/carstonks/options-engine/internal/pricing"
)

var (
	// ErrInsufficientFunds is returned when cash does not cover the total premium.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrPositionNotFound is returned when closing an unknown position.
	ErrPositionNotFound = errors.New("ledger: position not found")

	// OpeningSpread is the share of the premium a position is worth
	// immediately after opening (10% bid/ask friction).
	OpeningSpread = decimal.NewFromFloat(0.9)
)

// State is the complete ledger: open positions plus account counters.
type State struct {
	Positions []model.Position
	Stats     model.AccountStats
}

// Clone returns a deep copy of the position slice.
func (s State) Clone() State {
	return State{Positions: slices.Clone(s.Positions), Stats: s.Stats}
}

// CheckConsistent reports whether the counters agree with the positions:
// activePositions must equal the total quantity held.
func (s State) CheckConsistent() error {
	held := 0
	for _, p := range s.Positions {
		held += p.Quantity
	}
	if s.Stats.ActivePositions != held {
		return fmt.Errorf("%w: activePositions is %d, positions hold %d contracts",
			ErrMalformedPersistedState, s.Stats.ActivePositions, held)
	}
	return nil
}

// Find returns the position with the given id.
func (s State) Find(id string) (model.Position, bool) {
	i := slices.IndexFunc(s.Positions, func(p model.Position) bool { return p.ID == id })
	if i < 0 {
		return model.Position{}, false
	}
	return s.Positions[i], true
}

// Open buys params.Quantity contracts on car at the modeled premium.
//
// The new position snapshots the car's current price, is marked at 90% of
// the total premium, and expires params.ExpiryMonths calendar months after
// now. Cash is debited by the total premium.
func Open(st State, car model.Car, p model.TradeParameters, now time.Time, id string) (State, model.Position, error) {
	if err := contract.Validate(p); err != nil {
		return st, model.Position{}, err
	}

	perContract := pricing.PremiumPerContract(car.PriceHistory, car.CurrentPrice, p.Type, p.ExpiryMonths, p.TargetPercentage)
	total := perContract.Mul(decimal.NewFromInt(int64(p.Quantity)))

	if st.Stats.CashBalance.LessThan(total) {
		return st, model.Position{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, total, st.Stats.CashBalance)
	}

	pos := model.Position{
		ID:               id,
		CarID:            car.ID,
		Type:             p.Type,
		EntryPrice:       car.CurrentPrice,
		CurrentValue:     total.Mul(OpeningSpread).Round(0),
		ExpiryDate:       contract.ExpiryDate(now.UTC().Truncate(time.Millisecond), p.ExpiryMonths),
		TargetPercentage: p.TargetPercentage,
		Premium:          total,
		Quantity:         p.Quantity,
	}

	next := st.Clone()
	next.Positions = append(next.Positions, pos)
	next.Stats.CashBalance = st.Stats.CashBalance.Sub(total)
	next.Stats.ActivePositions = st.Stats.ActivePositions + p.Quantity
	next.Stats.TotalTrades = st.Stats.TotalTrades + 1

	return next, pos, nil
}

// Close removes a position and realizes its current value as cash.
func Close(st State, id string) (State, model.Position, error) {
	pos, ok := st.Find(id)
	if !ok {
		return st, model.Position{}, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	next := State{Stats: st.Stats}
	next.Positions = slices.DeleteFunc(slices.Clone(st.Positions), func(p model.Position) bool { return p.ID == id })
	next.Stats.CashBalance = st.Stats.CashBalance.Add(pos.CurrentValue)
	next.Stats.ActivePositions = st.Stats.ActivePositions - pos.Quantity

	return next, pos, nil
}

// Aggregate sums premium and value over positions. PercentageReturn is
// formatted to two decimals and is "0.00" when nothing is invested.
func Aggregate(positions []model.Position) model.Aggregate {
	invested := decimal.Zero
	value := decimal.Zero
	for _, p := range positions {
		invested = invested.Add(p.Premium)
		value = value.Add(p.CurrentValue)
	}
	pl := value.Sub(invested)

	return model.Aggregate{
		TotalInvested:     invested,
		TotalCurrentValue: value,
		TotalProfitLoss:   pl,
		PercentageReturn:  percentOf(pl, invested),
	}
}

// percentOf formats part/whole*100 with two decimals.
func percentOf(part, whole decimal.Decimal) string {
	if !whole.IsPositive() {
		return "0.00"
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).StringFixed(2)
}
