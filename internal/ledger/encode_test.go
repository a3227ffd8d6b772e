package ledger

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/carstonks/options-engine/internal/model"
)

func samePosition(a, b model.Position) bool {
	return a.ID == b.ID &&
		a.CarID == b.CarID &&
		a.Type == b.Type &&
		a.EntryPrice.Equal(b.EntryPrice) &&
		a.CurrentValue.Equal(b.CurrentValue) &&
		a.ExpiryDate.Equal(b.ExpiryDate) &&
		a.TargetPercentage == b.TargetPercentage &&
		a.Premium.Equal(b.Premium) &&
		a.Quantity == b.Quantity
}

func TestTrades_RoundTrip(t *testing.T) {
	st := Seed(d(100000))
	st, _, err := Open(st, testCar(), callParams(4), time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.Local), "p1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	data, err := EncodeTrades(st.Positions)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeTrades(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got) != len(st.Positions) {
		t.Fatalf("expected %d positions, got %d", len(st.Positions), len(got))
	}
	for i := range got {
		if !samePosition(got[i], st.Positions[i]) {
			t.Errorf("position %d differs:\n got  %+v\n want %+v", i, got[i], st.Positions[i])
		}
	}
}

func TestEncodeTrades_RecordShape(t *testing.T) {
	data, err := EncodeTrades(Seed(d(100000)).Positions[:1])
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rec := raw[0]
	for _, key := range []string{"id", "carId", "type", "entryPrice", "currentValue", "expiryDate", "percentageChange", "premium", "quantity"} {
		if _, ok := rec[key]; !ok {
			t.Errorf("missing key %q in %v", key, rec)
		}
	}
	if _, ok := rec["entryPrice"].(float64); !ok {
		t.Errorf("entryPrice should be a JSON number, got %T", rec["entryPrice"])
	}
	if rec["expiryDate"] != "2023-12-31T00:00:00.000Z" {
		t.Errorf("unexpected expiryDate %v", rec["expiryDate"])
	}
}

func TestDecodeTrades_LegacyRecord(t *testing.T) {
	data := []byte(`[{"id":"t1","carId":"1","type":"CALL","entryPrice":170000,"currentValue":12000,"expiryDate":"2023-12-31","percentageChange":5,"premium":8500}]`)
	got, err := DecodeTrades(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Quantity != 1 {
		t.Errorf("missing quantity should default to 1, got %d", got[0].Quantity)
	}
	if !got[0].ExpiryDate.Equal(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected expiry %v", got[0].ExpiryDate)
	}
}

func TestDecodeTrades_Empty(t *testing.T) {
	got, err := DecodeTrades([]byte(`[]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no positions, got %d", len(got))
	}
}

func TestDecodeTrades_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"object not array", `{"id":"t1"}`},
		{"missing id", `[{"carId":"1","type":"CALL","entryPrice":1,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1}]`},
		{"bad type", `[{"id":"a","carId":"1","type":"LONG","entryPrice":1,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1}]`},
		{"string price", `[{"id":"a","carId":"1","type":"CALL","entryPrice":"abc","currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1}]`},
		{"null premium", `[{"id":"a","carId":"1","type":"CALL","entryPrice":1,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":null}]`},
		{"zero entry", `[{"id":"a","carId":"1","type":"CALL","entryPrice":0,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1}]`},
		{"bad date", `[{"id":"a","carId":"1","type":"PUT","entryPrice":1,"currentValue":1,"expiryDate":"soon","percentageChange":5,"premium":1}]`},
		{"zero quantity", `[{"id":"a","carId":"1","type":"PUT","entryPrice":1,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1,"quantity":0}]`},
		{"fractional quantity", `[{"id":"a","carId":"1","type":"PUT","entryPrice":1,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1,"quantity":1.5}]`},
		{"duplicate id", `[{"id":"a","carId":"1","type":"PUT","entryPrice":1,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1},{"id":"a","carId":"2","type":"PUT","entryPrice":1,"currentValue":1,"expiryDate":"2023-12-31","percentageChange":5,"premium":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTrades([]byte(tt.data)); !errors.Is(err, ErrMalformedPersistedState) {
				t.Errorf("expected ErrMalformedPersistedState, got %v", err)
			}
		})
	}
}

func TestStats_RoundTrip(t *testing.T) {
	st := Seed(d(123456))
	data, err := EncodeStats(st.Stats, st.Positions)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["totalInvested"] != float64(26500) || raw["percentageReturn"] != "13.21" {
		t.Errorf("unexpected aggregate snapshot: %v", raw)
	}

	got, err := DecodeStats(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.CashBalance.Equal(st.Stats.CashBalance) || got.ActivePositions != 3 || got.TotalTrades != 3 {
		t.Errorf("unexpected stats %+v", got)
	}
}

func TestDecodeStats_Malformed(t *testing.T) {
	for _, data := range []string{
		`nope`,
		`{"activePositions":1,"totalTrades":1}`,
		`{"cashBalance":-5,"activePositions":1,"totalTrades":1}`,
		`{"cashBalance":100,"activePositions":-1,"totalTrades":1}`,
		`{"cashBalance":100,"activePositions":1}`,
	} {
		if _, err := DecodeStats([]byte(data)); !errors.Is(err, ErrMalformedPersistedState) {
			t.Errorf("expected ErrMalformedPersistedState for %s, got %v", data, err)
		}
	}
}
