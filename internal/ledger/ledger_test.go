package ledger

import (
	"path/filepath"
	"testing"

	"strategy-api/internal/model"
	"strategy-api/internal/store"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	file := store.NewJSONFile(filepath.Join(t.TempDir(), "positions.json"), nil)
	return New(file, nil)
}

func TestReplace_OverwritesEntireLedger(t *testing.T) {
	l := newTestLedger(t)

	first := []model.Position{
		{Ticker: "AAPL", Quantity: 10, PurchasePrice: 100},
		{Ticker: "TSLA", Quantity: 5, PurchasePrice: 200},
	}
	if err := l.Replace(first); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	second := []model.Position{
		{Ticker: "NVDA", Quantity: 2, PurchasePrice: 50},
	}
	if err := l.Replace(second); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	got := l.Positions()
	if len(got) != 1 || got[0].Ticker != "NVDA" {
		t.Fatalf("ledger must hold only the latest snapshot, got %+v", got)
	}
}

func TestUpsert_FirstSight(t *testing.T) {
	l := newTestLedger(t)

	prev, seen, err := l.Upsert(model.StreamTick{
		Ticker: "AAPL", Price: 150, Quantity: 10, PurchasePrice: 140,
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if seen {
		t.Fatalf("first sight must report seen=false")
	}
	if prev != 150 {
		t.Errorf("first sight prev price must equal the inbound price, got %f", prev)
	}

	got := l.Positions()
	if len(got) != 1 {
		t.Fatalf("expected single position, got %d", len(got))
	}
	if got[0].UnrealizedPnL != 0 {
		t.Errorf("freshly inserted position must carry pnl 0, got %f", got[0].UnrealizedPnL)
	}
	if got[0].CurrentPrice != 150 || got[0].PurchasePrice != 140 {
		t.Errorf("unexpected inserted position: %+v", got[0])
	}
}

func TestUpsert_ExistingTickerUpdatesPriceAndPnl(t *testing.T) {
	l := newTestLedger(t)

	if _, _, err := l.Upsert(model.StreamTick{Ticker: "AAPL", Price: 150, Quantity: 10, PurchasePrice: 140}); err != nil {
		t.Fatalf("seed Upsert: %v", err)
	}

	prev, seen, err := l.Upsert(model.StreamTick{Ticker: "AAPL", Price: 152, Quantity: 99, PurchasePrice: 1})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if !seen {
		t.Fatalf("second update must report seen=true")
	}
	if prev != 150 {
		t.Errorf("prev price must be the price before this update, got %f", prev)
	}

	got := l.Positions()
	if len(got) != 1 {
		t.Fatalf("upsert must not duplicate tickers, got %d positions", len(got))
	}
	// quantity 与 purchase_price 保持账本原值，不被行情流覆盖。
	if got[0].Quantity != 10 || got[0].PurchasePrice != 140 {
		t.Errorf("existing position identity fields must be preserved: %+v", got[0])
	}
	if got[0].CurrentPrice != 152 {
		t.Errorf("current price must be updated, got %f", got[0].CurrentPrice)
	}
	if got[0].UnrealizedPnL != 120 { // (152-140)*10
		t.Errorf("unexpected pnl: got %f want 120", got[0].UnrealizedPnL)
	}
}

func TestPositions_MissingFileYieldsEmptyLedger(t *testing.T) {
	l := newTestLedger(t)
	if got := l.Positions(); len(got) != 0 {
		t.Fatalf("expected empty ledger, got %+v", got)
	}
}
