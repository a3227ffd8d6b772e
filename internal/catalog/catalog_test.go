package catalog

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func ids(cars []model.Car) []string {
	out := make([]string, len(cars))
	for i, c := range cars {
		out[i] = c.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]model.Car{
		car("a", "Beta", "Acme", "B", 2020, "", 100, 120),
		car("b", "Alpha", "acme", "A", 2021, "", 300, 240),
		car("c", "Gamma", "Zeta", "G", 2020, "", 200, 210),
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}

func TestDefault_SeedIsValid(t *testing.T) {
	c := Default()
	for _, id := range []string{"1", "2", "3"} {
		if _, err := c.Car(id); err != nil {
			t.Errorf("seed car %s missing: %v", id, err)
		}
	}
}

func TestCar_NotFound(t *testing.T) {
	_, err := testCatalog(t).Car("zzz")
	if !errors.Is(err, ErrCarNotFound) {
		t.Errorf("expected ErrCarNotFound, got %v", err)
	}
}

func TestNew_RejectsInvalidSeries(t *testing.T) {
	bad := model.Car{ID: "x", CurrentPrice: d(100)}
	if _, err := New([]model.Car{bad}); !errors.Is(err, model.ErrInvalidSeries) {
		t.Errorf("expected ErrInvalidSeries, got %v", err)
	}

	neg := car("y", "Y", "Y", "Y", 2020, "", 100, -5)
	if _, err := New([]model.Car{neg}); !errors.Is(err, model.ErrInvalidSeries) {
		t.Errorf("expected ErrInvalidSeries for negative price, got %v", err)
	}
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	a := car("a", "A", "A", "A", 2020, "", 100)
	if _, err := New([]model.Car{a, a}); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestList_Sorting(t *testing.T) {
	c := testCatalog(t)
	tests := []struct {
		sortBy string
		want   []string
	}{
		{"", []string{"b", "c", "a"}},
		{SortPriceDesc, []string{"b", "c", "a"}},
		{SortPriceAsc, []string{"a", "c", "b"}},
		{SortName, []string{"b", "a", "c"}},
		{SortPerformance, []string{"a", "c", "b"}}, // +20%, +5%, -20%
	}
	for _, tt := range tests {
		got := ids(c.List(Filter{SortBy: tt.sortBy}))
		if !equalIDs(got, tt.want) {
			t.Errorf("sort %q: got %v, want %v", tt.sortBy, got, tt.want)
		}
	}
}

func TestList_Filters(t *testing.T) {
	c := testCatalog(t)

	if got := ids(c.List(Filter{Brand: "ACME"})); !equalIDs(got, []string{"b", "a"}) {
		t.Errorf("brand filter should be case-insensitive, got %v", got)
	}
	if got := ids(c.List(Filter{Year: 2020, SortBy: SortName})); !equalIDs(got, []string{"a", "c"}) {
		t.Errorf("year filter: got %v", got)
	}
	if got := c.List(Filter{Brand: "Nope"}); len(got) != 0 {
		t.Errorf("expected no cars, got %v", ids(got))
	}
}

func TestBrandsAndYears(t *testing.T) {
	c := testCatalog(t)
	if got := c.Brands(); len(got) != 3 {
		t.Errorf("expected 3 distinct brands (case-sensitive), got %v", got)
	}
	years := c.Years()
	if len(years) != 2 || years[0] != 2021 || years[1] != 2020 {
		t.Errorf("expected [2021 2020], got %v", years)
	}
}

func TestPerformance(t *testing.T) {
	c := testCatalog(t)
	a, _ := c.Car("a")
	if got := Performance(a); !got.Equal(d(20)) {
		t.Errorf("expected 20%%, got %s", got)
	}
}

func TestTrends(t *testing.T) {
	trends := testCatalog(t).Trends()
	if len(trends) != 3 {
		t.Fatalf("expected 3 trends, got %d", len(trends))
	}
	if trends[1].Name != "Alpha" || trends[1].Change != -20 || !trends[1].Price.Equal(d(240)) {
		t.Errorf("unexpected trend %+v", trends[1])
	}
}

func TestCarAndList_DoNotShareHistory(t *testing.T) {
	c := Default()

	car, err := c.Car("1")
	if err != nil {
		t.Fatalf("car: %v", err)
	}
	want := car.PriceHistory[0].Price
	car.PriceHistory[0].Price = d(1)

	for _, listed := range c.List(Filter{}) {
		if listed.ID == "1" {
			listed.PriceHistory[0].Price = d(2)
		}
	}

	again, _ := c.Car("1")
	if !again.PriceHistory[0].Price.Equal(want) {
		t.Errorf("catalog history changed to %s, want %s", again.PriceHistory[0].Price, want)
	}
}
