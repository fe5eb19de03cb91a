package monitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qtraxis/livetrader/internal/exchange"
	"github.com/qtraxis/livetrader/internal/model"
	"github.com/qtraxis/livetrader/internal/position"
	"github.com/qtraxis/livetrader/internal/signal"
)

type fakeExecutor struct {
	closeFill model.Position
	closeErr  error
	closed    []string
}

func (f *fakeExecutor) Open(ctx context.Context, intent model.EntryIntent, quantity float64) (exchange.Fill, error) {
	return exchange.Fill{}, nil
}

func (f *fakeExecutor) Close(ctx context.Context, pos model.Position, reason model.CloseReason) (exchange.Fill, error) {
	if f.closeErr != nil {
		return exchange.Fill{}, f.closeErr
	}
	f.closed = append(f.closed, pos.Symbol)
	return exchange.Fill{FilledQty: pos.Quantity, FillPrice: pos.EntryPrice}, nil
}

func (f *fakeExecutor) Cancel(ctx context.Context, orderID string) error { return nil }

func (f *fakeExecutor) FetchAccount(ctx context.Context) (model.AccountSnapshot, error) {
	return model.AccountSnapshot{}, nil
}

func (f *fakeExecutor) FetchOpenPositions(ctx context.Context) ([]model.Position, error) {
	return nil, nil
}

type fakeCompensator struct {
	evaluated bool
}

func (f *fakeCompensator) Evaluate(ctx context.Context, pos model.Position, unrealizedFraction float64) error {
	f.evaluated = true
	return nil
}

type fakeRecorder struct {
	closes int
}

func (f *fakeRecorder) RecordClose(symbol string, side model.Side, price, qty float64, reason string) {
	f.closes++
}

func testParams() signal.Params {
	return signal.Params{TrailingStopFraction: 0.01, MaxHoldDuration: 0}
}

func TestMonitor_Tick_NoOpenPosition_IsNoop(t *testing.T) {
	store := position.New()
	exec := &fakeExecutor{}
	m := New(store, exec, &fakeCompensator{}, &fakeRecorder{}, testParams())

	err := m.Tick(context.Background(), "BTCUSDT", model.FeatureFrame{Ready: true}, model.Signal{Kind: model.SignalNone})
	assert.NoError(t, err)
}

func TestMonitor_Tick_ClosesOnStopLoss(t *testing.T) {
	store := position.New()
	store.Create(model.Position{Symbol: "BTCUSDT", Side: model.SideLong, EntryPrice: 100, Quantity: 1, StopLossPrice: 95, TakeProfitPrice: 120})
	exec := &fakeExecutor{}
	recorder := &fakeRecorder{}
	m := New(store, exec, &fakeCompensator{}, recorder, testParams())

	frame := model.FeatureFrame{Bar: model.Bar{Close: 94}, Ready: true}
	err := m.Tick(context.Background(), "BTCUSDT", frame, model.Signal{Kind: model.SignalNone})
	assert.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT"}, exec.closed)
	assert.Equal(t, 1, recorder.closes)
	_, ok := store.Get("BTCUSDT")
	assert.False(t, ok, "closed position must be removed from the store")
}

func TestMonitor_Tick_RunsCompensationWhenOpen(t *testing.T) {
	store := position.New()
	store.Create(model.Position{Symbol: "BTCUSDT", Side: model.SideLong, EntryPrice: 100, Quantity: 1, StopLossPrice: 50, TakeProfitPrice: 200})
	exec := &fakeExecutor{}
	comp := &fakeCompensator{}
	m := New(store, exec, comp, &fakeRecorder{}, testParams())

	frame := model.FeatureFrame{Bar: model.Bar{Close: 90}, Ready: true}
	err := m.Tick(context.Background(), "BTCUSDT", frame, model.Signal{Kind: model.SignalNone})
	assert.NoError(t, err)
	assert.True(t, comp.evaluated)
}

func TestMonitor_Tick_SkipsPendingClose(t *testing.T) {
	store := position.New()
	store.Create(model.Position{Symbol: "BTCUSDT", Side: model.SideLong, EntryPrice: 100, StopLossPrice: 95})
	store.MarkPendingClose("BTCUSDT")

	exec := &fakeExecutor{}
	m := New(store, exec, &fakeCompensator{}, &fakeRecorder{}, testParams())

	frame := model.FeatureFrame{Bar: model.Bar{Close: 50}, Ready: true}
	err := m.Tick(context.Background(), "BTCUSDT", frame, model.Signal{Kind: model.SignalNone})
	assert.NoError(t, err)
	assert.Empty(t, exec.closed, "a pending-close position must not be closed twice")
}

func TestMonitor_Tick_CloseFailure_ClearsPendingFlag(t *testing.T) {
	store := position.New()
	store.Create(model.Position{Symbol: "BTCUSDT", Side: model.SideLong, EntryPrice: 100, StopLossPrice: 95})
	exec := &fakeExecutor{closeErr: assertError{}}
	m := New(store, exec, &fakeCompensator{}, &fakeRecorder{}, testParams())

	frame := model.FeatureFrame{Bar: model.Bar{Close: 90}, Ready: true}
	err := m.Tick(context.Background(), "BTCUSDT", frame, model.Signal{Kind: model.SignalNone})
	assert.Error(t, err)

	claimed, markErr := store.MarkPendingClose("BTCUSDT")
	assert.NoError(t, markErr)
	assert.True(t, claimed, "a failed close must clear the pending flag so the next tick can retry")
}

type assertError struct{}

func (assertError) Error() string { return "exchange unavailable" }
