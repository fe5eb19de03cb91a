package storage

import (
	"testing"

	"github.com/qtraxis/livetrader/internal/model"
)

func TestTradeLog_RecordOpenThenClose_ComputesRealizedPnL(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	log := NewTradeLog(store)
	log.RecordOpen("BTCUSDT", model.SideLong, 100, 2)
	log.RecordClose("BTCUSDT", model.SideLong, 110, 2, "TAKE_PROFIT")

	count, pnl := log.Summary()
	if count != 1 {
		t.Errorf("TradeCount = %d, want 1", count)
	}
	if pnl != 20 {
		t.Errorf("RealizedPnL = %v, want 20", pnl)
	}
}

func TestTradeLog_RecordClose_ShortSide(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	log := NewTradeLog(store)
	log.RecordOpen("ETHUSDT", model.SideShort, 50, 4)
	log.RecordClose("ETHUSDT", model.SideShort, 45, 4, "STOP_LOSS")

	_, pnl := log.Summary()
	if pnl != 20 {
		t.Errorf("RealizedPnL = %v, want 20", pnl)
	}
}

func TestTradeLog_CloseWithoutOpen_CountsTradeButNoPnL(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	log := NewTradeLog(store)
	log.RecordClose("BTCUSDT", model.SideLong, 100, 1, "RECONCILED")

	count, pnl := log.Summary()
	if count != 1 {
		t.Errorf("TradeCount = %d, want 1", count)
	}
	if pnl != 0 {
		t.Errorf("RealizedPnL = %v, want 0", pnl)
	}
}

func TestTradeLog_MultipleSymbols_TrackIndependently(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	log := NewTradeLog(store)
	log.RecordOpen("BTCUSDT", model.SideLong, 100, 1)
	log.RecordOpen("ETHUSDT", model.SideLong, 10, 5)
	log.RecordClose("BTCUSDT", model.SideLong, 105, 1, "TAKE_PROFIT")
	log.RecordClose("ETHUSDT", model.SideLong, 9, 5, "STOP_LOSS")

	count, pnl := log.Summary()
	if count != 2 {
		t.Errorf("TradeCount = %d, want 2", count)
	}
	want := 5.0 + (-5.0)
	if pnl != want {
		t.Errorf("RealizedPnL = %v, want %v", pnl, want)
	}
}

func TestStore_PositionSnapshot_RoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	positions := []model.Position{
		{Symbol: "BTCUSDT", Side: model.SideLong, EntryPrice: 100, Quantity: 1},
	}
	if err := store.SavePositionSnapshot(positions); err != nil {
		t.Fatalf("SavePositionSnapshot: %v", err)
	}

	loaded, err := store.LoadPositionSnapshot()
	if err != nil {
		t.Fatalf("LoadPositionSnapshot: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Symbol != "BTCUSDT" {
		t.Errorf("LoadPositionSnapshot = %+v, want one BTCUSDT position", loaded)
	}
}

func TestStore_LoadPositionSnapshot_EmptyWhenNeverSaved(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	loaded, err := store.LoadPositionSnapshot()
	if err != nil {
		t.Fatalf("LoadPositionSnapshot: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("LoadPositionSnapshot = %+v, want empty", loaded)
	}
}

func TestStore_WriteSessionResult(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	result := SessionResult{TradeCount: 3, RealizedPnL: 42.5, MaxDrawdown: 0.1}
	if err := store.WriteSessionResult(result); err != nil {
		t.Fatalf("WriteSessionResult: %v", err)
	}
}
