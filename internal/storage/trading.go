package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/rs/zerolog/log"

	"github.com/qtraxis/livetrader/internal/model"
)

const (
	tradeLogBucket         = "trades_log"
	positionSnapshotBucket = "position_snapshots"
	sessionResultBucket    = "session_results"
)

// TradeRecord is one append-only entry in the trade log: an open or close
// event for a position.
type TradeRecord struct {
	Symbol    string      `json:"symbol"`
	Side      model.Side  `json:"side"`
	Event     string      `json:"event"` // "OPEN" or "CLOSE"
	Price     float64     `json:"price"`
	Quantity  float64     `json:"quantity"`
	Reason    string      `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// AppendTradeRecord writes one trade log entry, keyed symbol_timestamp like
// every other time-series bucket in this store.
func (s *Store) AppendTradeRecord(rec TradeRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(tradeLogBucket))
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal trade record: %w", err)
		}
		key := fmt.Sprintf("%s_%d", rec.Symbol, rec.Timestamp.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// SavePositionSnapshot overwrites the single latest-position-set snapshot,
// refreshed periodically by the orchestrator so a restart can cross-check
// local state against the exchange's reconciliation pass.
func (s *Store) SavePositionSnapshot(positions []model.Position) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(positionSnapshotBucket))
		data, err := json.Marshal(positions)
		if err != nil {
			return fmt.Errorf("marshal position snapshot: %w", err)
		}
		return b.Put([]byte("latest"), data)
	})
}

// LoadPositionSnapshot reads back the last saved position snapshot.
func (s *Store) LoadPositionSnapshot() ([]model.Position, error) {
	var positions []model.Position
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(positionSnapshotBucket))
		data := b.Get([]byte("latest"))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &positions)
	})
	return positions, err
}

// SessionResult is the aggregate summary written once at shutdown. It
// intentionally carries only headline numbers — backtest-style performance
// reporting is out of scope.
type SessionResult struct {
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	TradeCount     int       `json:"trade_count"`
	RealizedPnL    float64   `json:"realized_pnl"`
	MaxDrawdown    float64   `json:"max_drawdown"`
}

// TradeLog adapts Store to the orchestrator's and monitor's narrow
// RecordOpen/RecordClose recorder interfaces, and tracks the running trade
// count and realized PnL needed for the session result summary. Entry
// prices are tracked per symbol so a matching close can compute realized
// PnL; at most one open position per symbol is assumed, matching
// PositionStore's invariant.
type TradeLog struct {
	store *Store

	mu          sync.Mutex
	opens       map[string]openEntry
	tradeCount  int
	realizedPnL float64
}

type openEntry struct {
	side  model.Side
	price float64
	qty   float64
}

// NewTradeLog builds a TradeLog backed by store.
func NewTradeLog(store *Store) *TradeLog {
	return &TradeLog{store: store, opens: make(map[string]openEntry)}
}

// RecordOpen persists an OPEN event and remembers the entry for PnL
// attribution on the matching close.
func (t *TradeLog) RecordOpen(symbol string, side model.Side, price, qty float64) {
	t.mu.Lock()
	t.opens[symbol] = openEntry{side: side, price: price, qty: qty}
	t.mu.Unlock()

	if err := t.store.AppendTradeRecord(TradeRecord{
		Symbol: symbol, Side: side, Event: "OPEN", Price: price, Quantity: qty, Timestamp: time.Now(),
	}); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist trade open")
	}
}

// RecordClose persists a CLOSE event and folds its realized PnL into the
// running session total.
func (t *TradeLog) RecordClose(symbol string, side model.Side, price, qty float64, reason string) {
	t.mu.Lock()
	entry, hadOpen := t.opens[symbol]
	delete(t.opens, symbol)
	t.tradeCount++
	var pnl float64
	if hadOpen {
		if entry.side == model.SideLong {
			pnl = (price - entry.price) * qty
		} else {
			pnl = (entry.price - price) * qty
		}
		t.realizedPnL += pnl
	}
	t.mu.Unlock()

	if err := t.store.AppendTradeRecord(TradeRecord{
		Symbol: symbol, Side: side, Event: "CLOSE", Price: price, Quantity: qty, Reason: reason, Timestamp: time.Now(),
	}); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist trade close")
	}
}

// Summary returns the trade count and realized PnL accumulated so far, for
// use in the session result document written at shutdown.
func (t *TradeLog) Summary() (tradeCount int, realizedPnL float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tradeCount, t.realizedPnL
}

// WriteSessionResult persists the session summary, keyed by its end time.
func (s *Store) WriteSessionResult(result SessionResult) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionResultBucket))
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal session result: %w", err)
		}
		key := fmt.Sprintf("%d", result.EndedAt.UnixNano())
		return b.Put([]byte(key), data)
	})
}
