package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/model"
)

// Keys of the two persisted records.
const (
	TradesKey = "trades"
	StatsKey  = "portfolioStats"
)

// ErrMalformedPersistedState is returned when a stored record fails to
// parse or validate. Callers recover by reseeding.
var ErrMalformedPersistedState = errors.New("ledger: malformed persisted state")

// isoMillis matches the browser's Date.toISOString layout.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// tradeRecord is the persisted shape of a Position. Numbers stay as JSON
// numbers; json.Number keeps them exact.
type tradeRecord struct {
	ID               string      `json:"id"`
	CarID            string      `json:"carId"`
	Type             string      `json:"type"`
	EntryPrice       json.Number `json:"entryPrice"`
	CurrentValue     json.Number `json:"currentValue"`
	ExpiryDate       string      `json:"expiryDate"`
	PercentageChange json.Number `json:"percentageChange"`
	Premium          json.Number `json:"premium"`
	Quantity         json.Number `json:"quantity,omitempty"`
}

// statsRecord is the persisted shape of AccountStats. The aggregate
// fields are written for readers of the raw record and ignored on load.
type statsRecord struct {
	CashBalance      json.Number `json:"cashBalance"`
	ActivePositions  json.Number `json:"activePositions"`
	TotalTrades      json.Number `json:"totalTrades"`
	TotalInvested    json.Number `json:"totalInvested"`
	TotalValue       json.Number `json:"totalValue"`
	TotalProfitLoss  json.Number `json:"totalProfitLoss"`
	PercentageReturn string      `json:"percentageReturn"`
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

// EncodeTrades serializes positions as the "trades" record.
func EncodeTrades(positions []model.Position) ([]byte, error) {
	records := make([]tradeRecord, 0, len(positions))
	for _, p := range positions {
		records = append(records, tradeRecord{
			ID:               p.ID,
			CarID:            p.CarID,
			Type:             string(p.Type),
			EntryPrice:       number(p.EntryPrice),
			CurrentValue:     number(p.CurrentValue),
			ExpiryDate:       p.ExpiryDate.UTC().Format(isoMillis),
			PercentageChange: json.Number(fmt.Sprint(p.TargetPercentage)),
			Premium:          number(p.Premium),
			Quantity:         json.Number(fmt.Sprint(p.Quantity)),
		})
	}
	return json.Marshal(records)
}

// DecodeTrades parses and validates the "trades" record. Records written
// before quantities existed decode with quantity 1.
func DecodeTrades(data []byte) ([]model.Position, error) {
	var records []tradeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: trades: %v", ErrMalformedPersistedState, err)
	}

	positions := make([]model.Position, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		p, err := r.position()
		if err != nil {
			return nil, fmt.Errorf("%w: trades[%d]: %v", ErrMalformedPersistedState, i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: trades[%d]: duplicate id %s", ErrMalformedPersistedState, i, p.ID)
		}
		seen[p.ID] = true
		positions = append(positions, p)
	}
	return positions, nil
}

func (r tradeRecord) position() (model.Position, error) {
	var p model.Position
	var err error

	if r.ID == "" {
		return p, errors.New("missing id")
	}
	if r.CarID == "" {
		return p, errors.New("missing carId")
	}
	if p.Type, err = model.ParseOptionType(r.Type); err != nil {
		return p, err
	}
	if p.EntryPrice, err = positiveDecimal("entryPrice", r.EntryPrice); err != nil {
		return p, err
	}
	if p.CurrentValue, err = nonNegativeDecimal("currentValue", r.CurrentValue); err != nil {
		return p, err
	}
	if p.Premium, err = nonNegativeDecimal("premium", r.Premium); err != nil {
		return p, err
	}
	if p.ExpiryDate, err = parseExpiry(r.ExpiryDate); err != nil {
		return p, err
	}
	if p.TargetPercentage, err = integer("percentageChange", r.PercentageChange, 0); err != nil {
		return p, err
	}

	p.Quantity = 1
	if r.Quantity != "" {
		if p.Quantity, err = integer("quantity", r.Quantity, 1); err != nil {
			return p, err
		}
	}

	p.ID = r.ID
	p.CarID = r.CarID
	return p, nil
}

// EncodeStats serializes the counters plus a snapshot of the aggregates
// over positions as the "portfolioStats" record.
func EncodeStats(stats model.AccountStats, positions []model.Position) ([]byte, error) {
	agg := Aggregate(positions)
	return json.Marshal(statsRecord{
		CashBalance:      number(stats.CashBalance),
		ActivePositions:  json.Number(fmt.Sprint(stats.ActivePositions)),
		TotalTrades:      json.Number(fmt.Sprint(stats.TotalTrades)),
		TotalInvested:    number(agg.TotalInvested),
		TotalValue:       number(agg.TotalCurrentValue),
		TotalProfitLoss:  number(agg.TotalProfitLoss),
		PercentageReturn: agg.PercentageReturn,
	})
}

// DecodeStats parses and validates the "portfolioStats" record.
func DecodeStats(data []byte) (model.AccountStats, error) {
	var r statsRecord
	var stats model.AccountStats
	if err := json.Unmarshal(data, &r); err != nil {
		return stats, fmt.Errorf("%w: stats: %v", ErrMalformedPersistedState, err)
	}

	var err error
	if stats.CashBalance, err = nonNegativeDecimal("cashBalance", r.CashBalance); err != nil {
		return stats, fmt.Errorf("%w: stats: %v", ErrMalformedPersistedState, err)
	}
	if stats.ActivePositions, err = integer("activePositions", r.ActivePositions, 0); err != nil {
		return stats, fmt.Errorf("%w: stats: %v", ErrMalformedPersistedState, err)
	}
	if stats.TotalTrades, err = integer("totalTrades", r.TotalTrades, 0); err != nil {
		return stats, fmt.Errorf("%w: stats: %v", ErrMalformedPersistedState, err)
	}
	return stats, nil
}

func parseDecimal(field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, fmt.Errorf("missing %s", field)
	}
	v, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %v", field, err)
	}
	return v, nil
}

func positiveDecimal(field string, n json.Number) (decimal.Decimal, error) {
	v, err := parseDecimal(field, n)
	if err == nil && !v.IsPositive() {
		err = fmt.Errorf("%s must be positive, got %s", field, v)
	}
	return v, err
}

func nonNegativeDecimal(field string, n json.Number) (decimal.Decimal, error) {
	v, err := parseDecimal(field, n)
	if err == nil && v.IsNegative() {
		err = fmt.Errorf("%s must not be negative, got %s", field, v)
	}
	return v, err
}

func integer(field string, n json.Number, min int64) (int, error) {
	if n == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer: %s", field, n)
	}
	if v < min {
		return 0, fmt.Errorf("%s must be at least %d, got %d", field, min, v)
	}
	return int(v), nil
}

func parseExpiry(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing expiryDate")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiryDate: %q is not an ISO-8601 date", s)
	}
	return t, nil
}
