// Package monitor implements PositionMonitor: the per-tick loop that keeps
// trailing stops current, decides when an open position should close, and
// hands off compensation decisions, all while never holding the position
// store's lock across a network call.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qtraxis/livetrader/internal/exchange"
	"github.com/qtraxis/livetrader/internal/model"
	"github.com/qtraxis/livetrader/internal/position"
	"github.com/qtraxis/livetrader/internal/signal"
)

// Compensator is the subset of CompensationEngine the monitor drives.
type Compensator interface {
	Evaluate(ctx context.Context, pos model.Position, unrealizedFraction float64) error
}

// TradeRecorder is the narrow persistence surface Monitor writes closed
// trades through, kept separate from internal/storage to avoid coupling
// this package to BoltDB.
type TradeRecorder interface {
	RecordClose(symbol string, side model.Side, price, qty float64, reason string)
}

// Monitor runs the four-step per-tick algorithm for one position: update
// the trailing stop, check for a close condition, fall back to the raw
// stop/take-profit check, then run a compensation pass.
type Monitor struct {
	store       *position.Store
	executor    exchange.OrderExecutor
	compensator Compensator
	recorder    TradeRecorder
	params      signal.Params
}

// New builds a Monitor bound to store, executor, and compensator. recorder
// may be nil, in which case closes are not persisted to the trade log.
func New(store *position.Store, executor exchange.OrderExecutor, compensator Compensator, recorder TradeRecorder, params signal.Params) *Monitor {
	return &Monitor{store: store, executor: executor, compensator: compensator, recorder: recorder, params: params}
}

// Tick runs one monitoring pass for symbol against the latest frame and the
// most recent signal for that symbol (used for reversal detection).
func (m *Monitor) Tick(ctx context.Context, symbol string, frame model.FeatureFrame, latestSignal model.Signal) error {
	pos, ok := m.store.Get(symbol)
	if !ok {
		return nil
	}
	if pos.PendingClose {
		return nil
	}

	price := frame.Bar.Close

	// Step 1: update the trailing stop and high-water mark. This mutation
	// happens entirely under the store's lock — no I/O here.
	if err := m.store.Update(symbol, func(p *model.Position) {
		if (p.Side == model.SideLong && price > p.HighWaterPrice) ||
			(p.Side == model.SideShort && (p.HighWaterPrice == 0 || price < p.HighWaterPrice)) {
			p.HighWaterPrice = price
		}
		if next := signal.NextTrailingStop(*p, price, m.params.TrailingStopFraction); next != p.TrailingStopPrice {
			p.TrailingStopPrice = next
			p.TrailingUpdated = true
		}
		p.CurrentPrice = price
		p.UnrealizedPnL = unrealizedPnL(*p, price)
	}); err != nil {
		return err
	}
	pos, _ = m.store.Get(symbol)

	// Step 2: does this tick close the position?
	reason, shouldClose := signal.ShouldClose(pos, frame, latestSignal, pos.OpenedAt, time.Now(), m.params)
	if shouldClose {
		return m.close(ctx, symbol, reason)
	}

	// Step 3: fallback raw stop/tp check is folded into ShouldClose already;
	// nothing further to do here if it returned false.

	// Step 4: compensation pass, driven off unrealized loss fraction.
	if m.compensator != nil {
		unrealized := unrealizedFraction(pos, price)
		if err := m.compensator.Evaluate(ctx, pos, unrealized); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("compensation evaluation failed")
		}
	}

	return nil
}

func (m *Monitor) close(ctx context.Context, symbol string, reason model.CloseReason) error {
	claimed, err := m.store.MarkPendingClose(symbol)
	if err != nil {
		return err
	}
	if !claimed {
		return nil // another goroutine already owns the close
	}

	pos, ok := m.store.Get(symbol)
	if !ok {
		return nil
	}

	// The lock is released before this call: MarkPendingClose only took
	// the lock to flip the flag, and it has already returned.
	fill, err := m.executor.Close(ctx, pos, reason)
	if err != nil {
		m.store.ClearPendingClose(symbol)
		return err
	}

	m.store.Remove(symbol)
	if m.recorder != nil {
		price := fill.FillPrice
		if price == 0 {
			price = pos.EntryPrice
		}
		m.recorder.RecordClose(symbol, pos.Side, price, pos.Quantity, string(reason))
	}
	log.Info().Str("symbol", symbol).Str("reason", string(reason)).Msg("position closed")
	return nil
}

func unrealizedFraction(pos model.Position, price float64) float64 {
	if pos.EntryPrice == 0 {
		return 0
	}
	if pos.Side == model.SideLong {
		return (price - pos.EntryPrice) / pos.EntryPrice
	}
	return (pos.EntryPrice - price) / pos.EntryPrice
}

func unrealizedPnL(pos model.Position, price float64) float64 {
	if pos.Side == model.SideLong {
		return (price - pos.EntryPrice) * pos.Quantity
	}
	return (pos.EntryPrice - price) * pos.Quantity
}
