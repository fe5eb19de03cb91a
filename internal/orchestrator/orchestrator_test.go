package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qtraxis/livetrader/internal/exchange"
	"github.com/qtraxis/livetrader/internal/marketdata"
	"github.com/qtraxis/livetrader/internal/model"
	"github.com/qtraxis/livetrader/internal/position"
	"github.com/qtraxis/livetrader/internal/risk"
	"github.com/qtraxis/livetrader/internal/scorer"
	"github.com/qtraxis/livetrader/internal/signal"
	"github.com/shopspring/decimal"
)

func TestGates_Allow_DefaultsToAllowed(t *testing.T) {
	var g Gates
	ok, reason := g.allow("BTCUSDT")
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestGates_Allow_CircuitBreakerTakesPriority(t *testing.T) {
	g := Gates{
		CircuitBreakerOpen:     func() bool { return true },
		DailyLossLimitBreached: func() bool { return true },
	}
	ok, reason := g.allow("BTCUSDT")
	assert.False(t, ok)
	assert.Equal(t, "circuit breaker open", reason)
}

func TestGates_Allow_DrawdownLimitBlocks(t *testing.T) {
	g := Gates{DrawdownLimitBreached: func() bool { return true }}
	ok, _ := g.allow("BTCUSDT")
	assert.False(t, ok)
}

func TestGates_Allow_SymbolPausedIsPerSymbol(t *testing.T) {
	g := Gates{SymbolPaused: func(symbol string) bool { return symbol == "ETHUSDT" }}
	ok, _ := g.allow("BTCUSDT")
	assert.True(t, ok)
	ok, _ = g.allow("ETHUSDT")
	assert.False(t, ok)
}

type fakeSource struct {
	bar model.Bar
}

func (f *fakeSource) FetchLatest(ctx context.Context, symbol, timeframe string) ([]model.Bar, error) {
	return []model.Bar{f.bar}, nil
}

type fakeFeatures struct {
	frame model.FeatureFrame
}

func (f *fakeFeatures) Compute(symbol string, bar model.Bar) model.FeatureFrame {
	return f.frame
}

type fakeExecutor struct {
	openCalls int
}

func (f *fakeExecutor) Open(ctx context.Context, intent model.EntryIntent, quantity float64) (exchange.Fill, error) {
	f.openCalls++
	return exchange.Fill{OrderID: "o1", FilledQty: quantity, FillPrice: intent.EntryPrice}, nil
}

func (f *fakeExecutor) Close(ctx context.Context, pos model.Position, reason model.CloseReason) (exchange.Fill, error) {
	return exchange.Fill{}, nil
}

func (f *fakeExecutor) Cancel(ctx context.Context, orderID string) error { return nil }

func (f *fakeExecutor) FetchAccount(ctx context.Context) (model.AccountSnapshot, error) {
	return model.AccountSnapshot{FreeQuoteBalance: decimal.NewFromFloat(10000), TotalQuoteBalance: decimal.NewFromFloat(10000)}, nil
}

func (f *fakeExecutor) FetchOpenPositions(ctx context.Context) ([]model.Position, error) {
	return nil, nil
}

func newTestOrchestrator(t *testing.T, frame model.FeatureFrame, exec *fakeExecutor) (*Orchestrator, *position.Store) {
	feed := marketdata.New(&fakeSource{bar: model.Bar{Symbol: "BTCUSDT", Timeframe: "1m", Open: 1, High: 1, Low: 1, Close: 1}}, 10, time.Millisecond, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	feed.Subscribe(ctx, "BTCUSDT", "1m")
	assert.Eventually(t, func() bool {
		bars, err := feed.GetRecentBars("BTCUSDT", "1m", 1)
		return err == nil && len(bars) == 1
	}, time.Second, time.Millisecond)

	sc, err := scorer.New(filepath.Join(t.TempDir(), "missing.onnx"), time.Second, nil)
	assert.NoError(t, err)

	store := position.New()
	policy := model.RiskPolicy{
		MaxConcurrentPositions: 5,
		MaxPortfolioHeat:       1,
		MaxSectorConcentration: 1,
		KellyFractionCap:       0.25,
		RiskPerTradeFraction:   0.02,
		MinNotional:            decimal.NewFromFloat(1),
	}
	sizer := risk.New(policy)

	o := New(Config{
		Feed:      feed,
		Features:  &fakeFeatures{frame: frame},
		Scorer:    sc,
		Sizer:     sizer,
		Executor:  exec,
		Store:     store,
		Gates:     Gates{},
		Params:    signal.Params{MLThresholdMin: 0.6, RSIOverbought: 70, RSIOversold: 30, ATRRatioCap: 0.5, VolumeRatioMin: 0},
		Symbols:   []string{"BTCUSDT"},
		Timeframe: "1m",
	})
	return o, store
}

func TestEvaluateSymbol_ScorerUnavailable_OpensNoPosition(t *testing.T) {
	frame := model.FeatureFrame{Bar: model.Bar{Symbol: "BTCUSDT", Close: 100}, EMAFast: 2, EMASlow: 1, ATR: 1, Ready: true}
	exec := &fakeExecutor{}
	o, store := newTestOrchestrator(t, frame, exec)

	o.evaluateSymbol(context.Background(), "BTCUSDT")

	assert.Equal(t, 0, exec.openCalls, "an unavailable scorer must never be papered over with a fallback signal")
	assert.Equal(t, 0, store.Count())
}

func TestEvaluateSymbol_SkipsWhenPositionAlreadyOpen(t *testing.T) {
	frame := model.FeatureFrame{Bar: model.Bar{Symbol: "BTCUSDT", Close: 100}, Ready: true}
	exec := &fakeExecutor{}
	o, store := newTestOrchestrator(t, frame, exec)
	store.Create(model.Position{Symbol: "BTCUSDT"})

	o.evaluateSymbol(context.Background(), "BTCUSDT")
	assert.Equal(t, 0, exec.openCalls)
}

func TestEvaluateSymbol_GateBlocksEntry(t *testing.T) {
	frame := model.FeatureFrame{Bar: model.Bar{Symbol: "BTCUSDT", Close: 100}, Ready: true}
	exec := &fakeExecutor{}
	o, _ := newTestOrchestrator(t, frame, exec)
	o.gates = Gates{CircuitBreakerOpen: func() bool { return true }}

	o.evaluateSymbol(context.Background(), "BTCUSDT")
	assert.Equal(t, 0, exec.openCalls)
}

func TestCurrentPortfolio_ReflectsOpenPositionCount(t *testing.T) {
	frame := model.FeatureFrame{Ready: true}
	exec := &fakeExecutor{}
	o, store := newTestOrchestrator(t, frame, exec)
	o.SetPortfolioStats(risk.PortfolioState{WinRate: 0.5})
	store.Create(model.Position{Symbol: "BTCUSDT"})

	p := o.currentPortfolio()
	assert.Equal(t, 1, p.OpenPositionCount)
	assert.Equal(t, 0.5, p.WinRate)
}
