package strategy

import (
	"path/filepath"
	"testing"
	"time"

	"strategy-api/internal/auditlog"
	"strategy-api/internal/model"
	"strategy-api/internal/store"
)

func newTestDirection(t *testing.T) (*Direction, *auditlog.TransactionLog) {
	t.Helper()
	file := store.NewJSONFile(filepath.Join(t.TempDir(), "trading_history.json"), nil)
	transactions := auditlog.NewTransactionLog(file, nil)
	return NewDirection(transactions, nil), transactions
}

var directionNow = time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)

func TestApply_FirstSightIsSilent(t *testing.T) {
	direction, transactions := newTestDirection(t)

	action, err := direction.Apply(
		model.StreamTick{Ticker: "AAPL", Price: 150, Quantity: 10, PurchasePrice: 140},
		150, false, directionNow,
	)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if action != model.ActionInitial {
		t.Errorf("first sight must return INITIAL, got %s", action)
	}
	if got := transactions.Transactions(); len(got) != 0 {
		t.Errorf("first sight must not write a transaction, got %+v", got)
	}
}

func TestApply_PriceIncreaseRecordsSell(t *testing.T) {
	direction, transactions := newTestDirection(t)

	action, err := direction.Apply(
		model.StreamTick{Ticker: "AAPL", Price: 152.456, Quantity: 10, PurchasePrice: 140},
		150, true, directionNow,
	)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if action != model.ActionSell {
		t.Errorf("price increase must return SELL, got %s", action)
	}

	got := transactions.Transactions()
	if len(got) != 1 {
		t.Fatalf("expected one transaction, got %d", len(got))
	}
	tx := got[0]
	if tx.Action != model.ActionSell {
		t.Errorf("unexpected action: %s", tx.Action)
	}
	if tx.Note != "Price increased - sell signal" {
		t.Errorf("unexpected note: %q", tx.Note)
	}
	if tx.Quantity == nil || *tx.Quantity != 10 {
		t.Errorf("sell transaction must carry the tick quantity, got %+v", tx.Quantity)
	}
	if tx.Price != 152.46 {
		t.Errorf("price must be rounded to 2 decimals, got %f", tx.Price)
	}
	if tx.Date != "2026-08-24" {
		t.Errorf("unexpected date: %q", tx.Date)
	}
}

func TestApply_PriceDecreaseRecordsTickUpdate(t *testing.T) {
	direction, transactions := newTestDirection(t)

	action, err := direction.Apply(
		model.StreamTick{Ticker: "AAPL", Price: 149, Quantity: 10, PurchasePrice: 140},
		150, true, directionNow,
	)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if action != model.ActionStay {
		t.Errorf("price decrease must return STAY, got %s", action)
	}

	got := transactions.Transactions()
	if len(got) != 1 {
		t.Fatalf("expected one transaction, got %d", len(got))
	}
	tx := got[0]
	if tx.Action != model.ActionTickUpdate {
		t.Errorf("stay must be logged as TICK_UPDATE, got %s", tx.Action)
	}
	if tx.Note != "Price decreased - stay" {
		t.Errorf("unexpected note: %q", tx.Note)
	}
	if tx.Quantity != nil {
		t.Errorf("tick update must not carry quantity, got %v", *tx.Quantity)
	}
}

func TestApply_EqualPriceTreatedAsStay(t *testing.T) {
	direction, transactions := newTestDirection(t)

	action, err := direction.Apply(
		model.StreamTick{Ticker: "AAPL", Price: 150, Quantity: 10, PurchasePrice: 140},
		150, true, directionNow,
	)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if action != model.ActionStay {
		t.Errorf("equal price must return STAY, got %s", action)
	}
	if got := transactions.Transactions(); len(got) != 1 || got[0].Action != model.ActionTickUpdate {
		t.Fatalf("equal price must write a TICK_UPDATE record, got %+v", got)
	}
}
