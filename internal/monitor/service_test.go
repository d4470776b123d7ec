package monitor

import (
	"context"
	"testing"

	"strategy-api/internal/config"
	"strategy-api/internal/model"
	"strategy-api/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestRecordAndListEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordTickReceived(ctx, "trade-1", "2026-08-24", model.TickPayload{
		Positions: []model.Position{{Ticker: "AAPL"}},
	})
	svc.RecordRecommendation(ctx, "trade-1", "ai", []model.Decision{
		{Action: model.ActionBuy, Ticker: "AAPL", Quantity: 5},
	})
	svc.RecordReconciliation(ctx, "trade-1", model.ReconciliationResult{Error: "remote down"})

	events, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// 最近的事件排在最前。
	if events[0].Type != EventReconciliation {
		t.Errorf("expected newest-first ordering, got %s first", events[0].Type)
	}
}

func TestListEvents_FilterByType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordTickReceived(ctx, "trade-1", "2026-08-24", model.TickPayload{})
	svc.RecordStreamTick(ctx, model.StreamTick{Ticker: "AAPL", Price: 150}, model.ActionSell, 149, false)
	svc.RecordStreamTick(ctx, model.StreamTick{Ticker: "AAPL", Price: 149}, model.ActionStay, 150, false)

	events, err := svc.ListEvents(ctx, EventStreamTick, 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 stream tick events, got %d", len(events))
	}
	for _, event := range events {
		if event.Type != EventStreamTick {
			t.Errorf("filter leaked event type %s", event.Type)
		}
	}
}

func TestListEvents_Limit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordTickReceived(ctx, "trade-n", "2026-08-24", model.TickPayload{})
	}

	events, err := svc.ListEvents(ctx, "", 3)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected limit to cap results at 3, got %d", len(events))
	}
}
