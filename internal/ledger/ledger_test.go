package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/contract"
	"github.com/carstonks/options-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var now = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// testCar prices a CALL 3m/5% at 2031 per contract.
func testCar() model.Car {
	return model.Car{
		ID:           "test",
		Name:         "Test Car",
		Brand:        "Test Brand",
		CurrentPrice: d(100000),
		PriceHistory: []model.PricePoint{
			{Date: "2023-01-01", Price: d(90000)},
			{Date: "2023-06-01", Price: d(100000)},
		},
	}
}

func callParams(qty int) model.TradeParameters {
	return model.TradeParameters{Type: model.Call, ExpiryMonths: 3, TargetPercentage: 5, Quantity: qty}
}

func account(cash float64) State {
	return State{Stats: model.AccountStats{CashBalance: d(cash)}}
}

// --- Open ---

func TestOpen_DebitsCashAndAddsPosition(t *testing.T) {
	st := account(50000)

	next, pos, err := Open(st, testCar(), callParams(2), now, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pos.ID != "p1" || pos.CarID != "test" || pos.Type != model.Call {
		t.Errorf("unexpected identity fields: %+v", pos)
	}
	if !pos.Premium.Equal(d(4062)) {
		t.Errorf("expected total premium 4062, got %s", pos.Premium)
	}
	// round(4062 * 0.9) = round(3655.8) = 3656
	if !pos.CurrentValue.Equal(d(3656)) {
		t.Errorf("expected current value 3656, got %s", pos.CurrentValue)
	}
	if !pos.EntryPrice.Equal(d(100000)) {
		t.Errorf("expected entry price snapshot 100000, got %s", pos.EntryPrice)
	}
	if want := time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC); !pos.ExpiryDate.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, pos.ExpiryDate)
	}

	if !next.Stats.CashBalance.Equal(d(50000 - 4062)) {
		t.Errorf("expected cash %d, got %s", 50000-4062, next.Stats.CashBalance)
	}
	if next.Stats.ActivePositions != 2 {
		t.Errorf("active positions should grow by quantity, got %d", next.Stats.ActivePositions)
	}
	if next.Stats.TotalTrades != 1 {
		t.Errorf("expected 1 trade, got %d", next.Stats.TotalTrades)
	}
	if len(next.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(next.Positions))
	}

	// Input state is untouched.
	if len(st.Positions) != 0 || !st.Stats.CashBalance.Equal(d(50000)) {
		t.Errorf("input state mutated: %+v", st)
	}
}

func TestOpen_InsufficientFunds(t *testing.T) {
	st := account(5000)
	// 5 contracts * 2031 = 10155 > 5000.
	next, _, err := Open(st, testCar(), callParams(5), now, "p1")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !next.Stats.CashBalance.Equal(d(5000)) {
		t.Errorf("cash must be unchanged, got %s", next.Stats.CashBalance)
	}
	if len(next.Positions) != 0 || next.Stats.TotalTrades != 0 || next.Stats.ActivePositions != 0 {
		t.Errorf("state must be unchanged on rejection: %+v", next)
	}
}

func TestOpen_ExactBalanceAllowed(t *testing.T) {
	st := account(2031)
	next, _, err := Open(st, testCar(), callParams(1), now, "p1")
	if err != nil {
		t.Fatalf("cash equal to premium should be accepted: %v", err)
	}
	if !next.Stats.CashBalance.IsZero() {
		t.Errorf("expected zero cash, got %s", next.Stats.CashBalance)
	}
}

func TestOpen_InvalidParams(t *testing.T) {
	p := callParams(1)
	p.ExpiryMonths = 4
	if _, _, err := Open(account(100000), testCar(), p, now, "p1"); !errors.Is(err, contract.ErrInvalidExpiry) {
		t.Errorf("expected ErrInvalidExpiry, got %v", err)
	}
}

// --- Close ---

func TestClose_RealizesCurrentValue(t *testing.T) {
	st := Seed(d(100000))

	next, pos, err := Close(st, "t2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.ID != "t2" {
		t.Errorf("expected closed t2, got %s", pos.ID)
	}
	if !next.Stats.CashBalance.Equal(d(106000)) {
		t.Errorf("expected cash 106000, got %s", next.Stats.CashBalance)
	}
	if next.Stats.ActivePositions != 2 {
		t.Errorf("expected 2 active, got %d", next.Stats.ActivePositions)
	}
	if _, ok := next.Find("t2"); ok {
		t.Error("closed position should be removed")
	}
	if len(st.Positions) != 3 {
		t.Errorf("input state mutated: %d positions", len(st.Positions))
	}
}

func TestClose_NotFound(t *testing.T) {
	st := Seed(d(100000))
	next, _, err := Close(st, "nope")
	if !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
	if len(next.Positions) != 3 || !next.Stats.CashBalance.Equal(d(100000)) {
		t.Errorf("state must be unchanged: %+v", next.Stats)
	}
}

func TestOpenThenClose_RestoresCountsAndRealizesSpread(t *testing.T) {
	before := Seed(d(100000))

	opened, pos, err := Open(before, testCar(), callParams(3), now, "p1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	closed, _, err := Close(opened, pos.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	if closed.Stats.ActivePositions != before.Stats.ActivePositions {
		t.Errorf("active positions: before=%d after=%d", before.Stats.ActivePositions, closed.Stats.ActivePositions)
	}
	delta := closed.Stats.CashBalance.Sub(before.Stats.CashBalance)
	if want := pos.CurrentValue.Sub(pos.Premium); !delta.Equal(want) {
		t.Errorf("cash delta %s, want %s", delta, want)
	}
	if closed.Stats.TotalTrades != before.Stats.TotalTrades+1 {
		t.Errorf("total trades should count the open, got %d", closed.Stats.TotalTrades)
	}
}

// --- Aggregate ---

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil)
	if !agg.TotalInvested.IsZero() || !agg.TotalCurrentValue.IsZero() || !agg.TotalProfitLoss.IsZero() {
		t.Errorf("expected zero totals, got %+v", agg)
	}
	if agg.PercentageReturn != "0.00" {
		t.Errorf("expected \"0.00\", got %q", agg.PercentageReturn)
	}
}

func TestAggregate_Seed(t *testing.T) {
	agg := Aggregate(Seed(d(100000)).Positions)
	if !agg.TotalInvested.Equal(d(26500)) {
		t.Errorf("expected invested 26500, got %s", agg.TotalInvested)
	}
	if !agg.TotalCurrentValue.Equal(d(30000)) {
		t.Errorf("expected value 30000, got %s", agg.TotalCurrentValue)
	}
	if !agg.TotalProfitLoss.Equal(d(3500)) {
		t.Errorf("expected P/L 3500, got %s", agg.TotalProfitLoss)
	}
	if agg.PercentageReturn != "13.21" {
		t.Errorf("expected 13.21, got %s", agg.PercentageReturn)
	}
}

func TestAggregate_TracksPositionChanges(t *testing.T) {
	st := Seed(d(100000))
	st, _, _ = Open(st, testCar(), callParams(1), now, "p1")
	st, _, _ = Close(st, "t1")

	agg := Aggregate(st.Positions)
	want := decimal.Zero
	for _, p := range st.Positions {
		want = want.Add(p.Premium)
	}
	if !agg.TotalInvested.Equal(want) {
		t.Errorf("aggregate drifted: %s vs %s", agg.TotalInvested, want)
	}
}

// --- Display ---

func TestFormatProfitLoss(t *testing.T) {
	tests := []struct {
		pl, basis float64
		want      string
	}{
		{50000, 180000, "+$50,000 (27.78%)"},
		{0, 1000, "+$0 (0.00%)"},
		{-1000, 10000, "-$1,000 (-10.00%)"},
		{-406, 4062, "-$406 (-10.00%)"},
		{1234567, 0, "+$1,234,567 (0.00%)"},
	}
	for _, tt := range tests {
		if got := FormatProfitLoss(d(tt.pl), d(tt.basis)); got != tt.want {
			t.Errorf("FormatProfitLoss(%v, %v) = %q, want %q", tt.pl, tt.basis, got, tt.want)
		}
	}
}

func TestSummarize_ClosedScenario(t *testing.T) {
	p := model.Position{
		ID: "x", CarID: "1", Type: model.Call,
		EntryPrice: d(200000), CurrentValue: d(230000), Premium: d(180000),
		TargetPercentage: 10, Quantity: 1,
	}
	s := Summarize(p)
	if s.ProfitDisplay != "+$50,000 (27.78%)" {
		t.Errorf("unexpected display %q", s.ProfitDisplay)
	}
	if !s.StrikePrice.Equal(d(220000)) {
		t.Errorf("expected strike 220000, got %s", s.StrikePrice)
	}
	if s.Target != "10% above entry" {
		t.Errorf("unexpected target %q", s.Target)
	}
}

func TestCheckConsistent(t *testing.T) {
	if err := Seed(d(100000)).CheckConsistent(); err != nil {
		t.Errorf("seed should be consistent: %v", err)
	}
	if err := account(50000).CheckConsistent(); err != nil {
		t.Errorf("empty account should be consistent: %v", err)
	}

	st := Seed(d(100000))
	st.Stats.ActivePositions = 0
	if err := st.CheckConsistent(); !errors.Is(err, ErrMalformedPersistedState) {
		t.Errorf("expected ErrMalformedPersistedState, got %v", err)
	}

	next, _, err := Open(Seed(d(100000)), testCar(), callParams(3), now, "x")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := next.CheckConsistent(); err != nil {
		t.Errorf("open should keep counters consistent: %v", err)
	}
}
