// Package orchestrator wires together MarketDataFeed, the SignalEngine,
// RiskSizer, OrderExecutor, PositionStore, and PositionMonitor into the
// three concurrent activities described for the live trading loop: signal
// generation, health checking, and position monitoring. It owns the
// recovery and shutdown procedures and enforces the pre-trade gates.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qtraxis/livetrader/internal/exchange"
	"github.com/qtraxis/livetrader/internal/marketdata"
	"github.com/qtraxis/livetrader/internal/model"
	"github.com/qtraxis/livetrader/internal/monitor"
	"github.com/qtraxis/livetrader/internal/position"
	"github.com/qtraxis/livetrader/internal/risk"
	"github.com/qtraxis/livetrader/internal/scorer"
	"github.com/qtraxis/livetrader/internal/signal"
)

// FeatureComputer is the external collaborator that turns bars into
// FeatureFrames.
type FeatureComputer interface {
	Compute(symbol string, bar model.Bar) model.FeatureFrame
}

// TradeRecorder is the narrow persistence surface the Orchestrator writes
// opened trades through.
type TradeRecorder interface {
	RecordOpen(symbol string, side model.Side, price, qty float64)
}

// Gates holds the Orchestrator's pre-trade gate state, generalized from the
// teacher's CanTrade/CanTradeSymbol/CheckDailyLossLimit/
// CheckMaxDrawdownProtection checks into one composable set.
type Gates struct {
	CircuitBreakerOpen     func() bool
	DailyLossLimitBreached func() bool
	DrawdownLimitBreached  func() bool
	SymbolPaused           func(symbol string) bool
}

func (g Gates) allow(symbol string) (bool, string) {
	if g.CircuitBreakerOpen != nil && g.CircuitBreakerOpen() {
		return false, "circuit breaker open"
	}
	if g.DailyLossLimitBreached != nil && g.DailyLossLimitBreached() {
		return false, "daily loss limit breached"
	}
	if g.DrawdownLimitBreached != nil && g.DrawdownLimitBreached() {
		return false, "max drawdown breached"
	}
	if g.SymbolPaused != nil && g.SymbolPaused(symbol) {
		return false, "symbol paused"
	}
	return true, ""
}

// Orchestrator is the top-level coordinator.
type Orchestrator struct {
	feed      *marketdata.Feed
	features  FeatureComputer
	scorer    *scorer.Scorer
	sizer     *risk.Sizer
	executor  exchange.OrderExecutor
	store     *position.Store
	monitor   *monitor.Monitor
	gates     Gates
	recorder  TradeRecorder
	params    signal.Params
	symbols   []string
	timeframe string

	portfolioMu sync.Mutex
	portfolio   risk.PortfolioState

	tickInterval time.Duration
}

// Config bundles the collaborators and tunables Orchestrator needs.
type Config struct {
	Feed      *marketdata.Feed
	Features  FeatureComputer
	Scorer    *scorer.Scorer
	Sizer     *risk.Sizer
	Executor  exchange.OrderExecutor
	Store     *position.Store
	Monitor   *monitor.Monitor
	Gates     Gates
	Recorder  TradeRecorder
	Params    signal.Params
	Symbols   []string
	Timeframe string
	TickInterval time.Duration
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Orchestrator{
		feed:         cfg.Feed,
		features:     cfg.Features,
		scorer:       cfg.Scorer,
		sizer:        cfg.Sizer,
		executor:     cfg.Executor,
		store:        cfg.Store,
		monitor:      cfg.Monitor,
		gates:        cfg.Gates,
		recorder:     cfg.Recorder,
		params:       cfg.Params,
		symbols:      cfg.Symbols,
		timeframe:    cfg.Timeframe,
		tickInterval: interval,
	}
}

// Run starts the three concurrent activities and blocks until ctx is
// cancelled, then waits for each activity to exit before returning
// (cooperative shutdown).
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.recover(ctx); err != nil {
		log.Error().Err(err).Msg("startup reconciliation failed, continuing with empty local state")
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() { defer wg.Done(); o.signalLoop(ctx) }()
	go func() { defer wg.Done(); o.healthLoop(ctx) }()
	go func() { defer wg.Done(); o.monitorLoop(ctx) }()

	<-ctx.Done()
	log.Info().Msg("orchestrator shutting down, waiting for activities to drain")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("orchestrator shutdown complete")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("orchestrator shutdown timed out, abandoning in-flight activities")
	}
	return nil
}

// recover reconciles local PositionStore state against the exchange's own
// view of open positions, per the OrderExecutor reconciliation algorithm:
// the exchange is the source of truth after a restart.
func (o *Orchestrator) recover(ctx context.Context) error {
	remote, err := o.executor.FetchOpenPositions(ctx)
	if err != nil {
		return err
	}

	remoteSymbols := make(map[string]bool, len(remote))
	for _, p := range remote {
		remoteSymbols[p.Symbol] = true
		if _, exists := o.store.Get(p.Symbol); exists {
			continue
		}
		p.Status = model.StatusOpen
		if err := o.store.Create(p); err != nil {
			log.Warn().Err(err).Str("symbol", p.Symbol).Msg("failed to adopt reconciled position")
		} else {
			log.Info().Str("symbol", p.Symbol).Msg("adopted position from exchange on restart")
		}
	}

	for _, local := range o.store.All() {
		if remoteSymbols[local.Symbol] {
			continue
		}
		o.store.Remove(local.Symbol)
		log.Warn().Str("symbol", local.Symbol).Msg("local position absent from exchange on restart, marked externally closed")
	}
	return nil
}

func (o *Orchestrator) signalLoop(ctx context.Context) {
	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range o.symbols {
				o.evaluateSymbol(ctx, symbol)
			}
		}
	}
}

func (o *Orchestrator) evaluateSymbol(ctx context.Context, symbol string) {
	if allowed, reason := o.gates.allow(symbol); !allowed {
		log.Debug().Str("symbol", symbol).Str("reason", reason).Msg("pre-trade gate blocked symbol")
		return
	}

	if _, open := o.store.Get(symbol); open {
		return // an open position on this symbol is the monitor loop's job
	}

	bars, err := o.feed.GetRecentBars(symbol, o.timeframe, 1)
	if err != nil || len(bars) == 0 {
		return
	}
	bar := bars[0]
	frame := o.features.Compute(symbol, bar)
	if !frame.Ready {
		return
	}

	featureVec := []float32{
		float32(frame.ATR), float32(frame.RSI), float32(frame.EMAFast - frame.EMASlow),
		float32(frame.DepthImbalance), float32(frame.TickImbalance),
		float32(frame.Bar.Close - frame.VWAP),
	}
	confidence, err := o.scorer.Score(ctx, featureVec)
	if err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("scorer refused to score, no signal produced")
		return
	}

	sig := signal.Evaluate(symbol, frame, confidence, o.params)
	if sig.Kind == model.SignalNone {
		return
	}

	intent := signal.BuildIntent(sig, frame, o.params)
	account, err := o.executor.FetchAccount(ctx)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("account fetch failed, skipping entry")
		return
	}

	decision := o.sizer.Size(intent, account, o.currentPortfolio())
	if !decision.Accepted {
		log.Debug().Str("symbol", symbol).Str("reason", string(decision.Reason)).Msg("risk sizer rejected entry")
		return
	}

	fill, err := o.executor.Open(ctx, intent, decision.Quantity)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("order open failed")
		return
	}

	pos := model.Position{
		ID:                fill.OrderID,
		Symbol:            symbol,
		Side:              intent.Side,
		EntryPrice:        fill.FillPrice,
		Quantity:          decision.Quantity,
		StopLossPrice:     intent.StopLossPrice,
		TakeProfitPrice:   intent.TakeProfitPrice,
		HighWaterPrice:    fill.FillPrice,
		OpenedAt:          time.Now(),
		ATRAtEntry:        intent.ATRAtEntry,
		ConfidenceAtEntry: intent.Confidence,
		StrategyTag:       "ml_threshold",
		Status:            model.StatusOpen,
	}
	if err := o.store.Create(pos); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("failed to record newly opened position")
		return
	}
	if o.recorder != nil {
		o.recorder.RecordOpen(symbol, intent.Side, pos.EntryPrice, pos.Quantity)
	}
}

func (o *Orchestrator) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range o.symbols {
				if h := o.feed.HealthStatus(symbol, o.timeframe); h != marketdata.HealthOK {
					log.Warn().Str("symbol", symbol).Str("health", string(h)).Msg("market data feed degraded")
				}
			}
		}
	}
}

func (o *Orchestrator) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, pos := range o.store.All() {
				bars, err := o.feed.GetRecentBars(pos.Symbol, o.timeframe, 1)
				if err != nil || len(bars) == 0 {
					continue
				}
				frame := o.features.Compute(pos.Symbol, bars[0])
				if err := o.monitor.Tick(ctx, pos.Symbol, frame, model.Signal{Kind: model.SignalNone}); err != nil {
					log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("monitor tick failed")
				}
			}
		}
	}
}

func (o *Orchestrator) currentPortfolio() risk.PortfolioState {
	o.portfolioMu.Lock()
	defer o.portfolioMu.Unlock()
	p := o.portfolio
	p.OpenPositionCount = o.store.Count()
	return p
}

// SetPortfolioStats lets callers refresh win-rate/heat statistics the
// Orchestrator cannot derive from PositionStore alone.
func (o *Orchestrator) SetPortfolioStats(stats risk.PortfolioState) {
	o.portfolioMu.Lock()
	defer o.portfolioMu.Unlock()
	o.portfolio = stats
}
