package pnl

import (
	"testing"

	"strategy-api/internal/model"
)

func TestCompute(t *testing.T) {
	positions := []model.Position{
		{Ticker: "AAPL", Quantity: 10, PurchasePrice: 5},
		{Ticker: "TSLA", Quantity: 2, PurchasePrice: 100},
	}
	summary := []model.MarketSummaryItem{
		{Ticker: "AAPL", CurrentPrice: 8},
		{Ticker: "TSLA", CurrentPrice: 90},
	}

	total, evaluated := Compute(positions, summary)
	if total != 10.0 { // (8-5)*10 + (90-100)*2
		t.Errorf("unexpected total: got %f want 10.0", total)
	}
	if evaluated != 2 {
		t.Errorf("unexpected evaluated count: got %d want 2", evaluated)
	}
}

func TestCompute_SkipsUnpricedPositions(t *testing.T) {
	positions := []model.Position{
		{Ticker: "AAPL", Quantity: 10, PurchasePrice: 5},
		{Ticker: "UNKNOWN", Quantity: 100, PurchasePrice: 1},
	}
	summary := []model.MarketSummaryItem{
		{Ticker: "AAPL", CurrentPrice: 8},
	}

	total, evaluated := Compute(positions, summary)
	if total != 30.0 {
		t.Errorf("unexpected total: got %f want 30.0", total)
	}
	if evaluated != 1 {
		t.Errorf("unpriced position must not count as evaluated: got %d", evaluated)
	}
}

func TestCompute_Empty(t *testing.T) {
	total, evaluated := Compute(nil, nil)
	if total != 0 || evaluated != 0 {
		t.Errorf("expected zero result for empty input, got total=%f evaluated=%d", total, evaluated)
	}
}
