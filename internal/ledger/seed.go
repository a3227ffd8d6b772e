package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/model"
)

// DefaultStartingCash is the cash balance of a fresh account.
var DefaultStartingCash = decimal.NewFromInt(100000)

// Seed returns the built-in dataset a session starts from when nothing
// has been persisted yet: three demo positions and matching counters.
func Seed(startingCash decimal.Decimal) State {
	positions := []model.Position{
		{
			ID:               "t1",
			CarID:            "1",
			Type:             model.Call,
			EntryPrice:       decimal.NewFromInt(170000),
			CurrentValue:     decimal.NewFromInt(12000),
			ExpiryDate:       time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			TargetPercentage: 5,
			Premium:          decimal.NewFromInt(8500),
			Quantity:         1,
		},
		{
			ID:               "t2",
			CarID:            "2",
			Type:             model.Put,
			EntryPrice:       decimal.NewFromInt(320000),
			CurrentValue:     decimal.NewFromInt(6000),
			ExpiryDate:       time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC),
			TargetPercentage: 10,
			Premium:          decimal.NewFromInt(9600),
			Quantity:         1,
		},
		{
			ID:               "t3",
			CarID:            "3",
			Type:             model.Put,
			EntryPrice:       decimal.NewFromInt(280000),
			CurrentValue:     decimal.NewFromInt(12000),
			ExpiryDate:       time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC),
			TargetPercentage: 5,
			Premium:          decimal.NewFromInt(8400),
			Quantity:         1,
		},
	}

	return State{
		Positions: positions,
		Stats: model.AccountStats{
			CashBalance:     startingCash,
			ActivePositions: len(positions),
			TotalTrades:     len(positions),
		},
	}
}
