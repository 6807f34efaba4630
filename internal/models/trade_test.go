package models

import (
	"testing"
	"time"
)

func TestTradeRecordValid(t *testing.T) {
	f := &FixedTrade{ModelID: "m"}
	s := &SelectionTrade{ModelID: "m"}

	cases := []struct {
		name string
		rec  TradeRecord
		want bool
	}{
		{"fixed", FixedRecord(f), true},
		{"selection", SelectionRecord(s), true},
		{"zero", TradeRecord{}, false},
		{"fixed tag without payload", TradeRecord{Kind: KindFixed}, false},
		{"fixed tag with selection payload", TradeRecord{Kind: KindFixed, Selection: s}, false},
		{"both payloads", TradeRecord{Kind: KindSelection, Fixed: f, Selection: s}, false},
		{"unknown kind", TradeRecord{Kind: "swap", Fixed: f}, false},
	}
	for _, tc := range cases {
		if got := tc.rec.Valid(); got != tc.want {
			t.Errorf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTradeRecordAccessors(t *testing.T) {
	day := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
	f := FixedRecord(&FixedTrade{
		ID: 7, ModelID: "gpt-4", ReturnRate: 2.5, ProfitLoss: 25,
		ExecutionDate: day, Status: StatusSettled,
	})
	if f.ID() != 7 || f.ModelID() != "gpt-4" || f.ReturnRate() != 2.5 || f.ProfitLoss() != 25 {
		t.Errorf("fixed accessors: %+v", f.Fixed)
	}
	if !f.ExecutionDate().Equal(day) || f.Status() != StatusSettled || !f.IsWin() {
		t.Errorf("fixed accessors: %+v", f.Fixed)
	}

	s := SelectionRecord(&SelectionTrade{ID: 9, ModelID: "claude", ReturnRate: -1, Status: StatusPending})
	if s.ID() != 9 || s.ModelID() != "claude" || s.IsWin() || s.Status() != StatusPending {
		t.Errorf("selection accessors: %+v", s.Selection)
	}
}

func TestTradeRecordAccessorsOnInvalidRecord(t *testing.T) {
	win := &FixedTrade{ID: 3, ModelID: "m", ReturnRate: 5}
	for _, r := range []TradeRecord{
		{},
		{Kind: KindFixed},
		{Kind: KindSelection, Fixed: win},
		{Kind: "swap", Fixed: win},
	} {
		if r.ModelID() != "" || r.ReturnRate() != 0 || r.ProfitLoss() != 0 || r.ID() != 0 {
			t.Errorf("%+v: expected zero values", r)
		}
		if !r.ExecutionDate().IsZero() || r.Status() != "" || r.IsWin() {
			t.Errorf("%+v: expected zero values", r)
		}
	}
}
