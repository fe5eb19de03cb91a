// Command orchestrator runs the live trading loop: it loads configuration,
// wires the market data feed, feature computer, scorer, risk sizer,
// exchange adapter, position store, monitor, and compensation engine into
// an Orchestrator, and serves Prometheus metrics and the risk dashboard
// alongside it until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/qtraxis/livetrader/internal/cfg"
	"github.com/qtraxis/livetrader/internal/compensation"
	"github.com/qtraxis/livetrader/internal/dashboard"
	"github.com/qtraxis/livetrader/internal/exchange"
	"github.com/qtraxis/livetrader/internal/exchange/bitunix"
	"github.com/qtraxis/livetrader/internal/features"
	"github.com/qtraxis/livetrader/internal/marketdata"
	"github.com/qtraxis/livetrader/internal/metrics"
	"github.com/qtraxis/livetrader/internal/model"
	"github.com/qtraxis/livetrader/internal/monitor"
	"github.com/qtraxis/livetrader/internal/orchestrator"
	"github.com/qtraxis/livetrader/internal/position"
	"github.com/qtraxis/livetrader/internal/risk"
	"github.com/qtraxis/livetrader/internal/scorer"
	"github.com/qtraxis/livetrader/internal/signal"
	"github.com/qtraxis/livetrader/internal/storage"
)

const timeframe = "1m"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(settings.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	m := metrics.New()
	tradeLog := &meteredRecorder{TradeLog: storage.NewTradeLog(store), wrapper: metrics.NewWrapper(m)}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: fmt.Sprintf(":%d", settings.MetricsPort), Handler: mux}
		go func() {
			<-ctx.Done()
			server.Shutdown(context.Background())
		}()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	client := bitunix.NewRESTWithOrderTracking(
		settings.Key, settings.Secret, settings.BaseURL, settings.RESTTimeout,
		settings.OrderExecutionTimeout, settings.OrderStatusCheckInterval, settings.MaxOrderRetries,
	)
	adapter := bitunix.NewAdapter(settings.Key, settings.Secret, []string{settings.BaseURL}, settings.RESTTimeout)
	var executor exchange.OrderExecutor = adapter

	for _, symbol := range settings.Symbols {
		if err := client.ChangeLeverage(symbol, settings.Leverage); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to set leverage, continuing with exchange default")
		}
		if err := client.ChangeMarginMode(symbol, settings.MarginMode); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to set margin mode, continuing with exchange default")
		}
	}

	feed := marketdata.New(bitunix.NewMarketDataSource(client), 500, time.Second, 30*time.Second)
	for _, symbol := range settings.Symbols {
		feed.Subscribe(ctx, symbol, timeframe)
	}

	computer := features.NewComputer(14, 14, 12, 26, 20, settings.TickSize, settings.VWAPWindow, settings.VWAPSize)

	sc, err := scorer.New(settings.ModelPath, 5*time.Second, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scorer")
	}
	if !sc.Available() {
		log.Warn().Msg("scorer unavailable at startup: live trading will refuse every entry until a model is present")
	}

	policy := riskPolicyFromSettings(settings)
	sizer := risk.New(policy)
	store_ := position.New()
	tracker := risk.NewPortfolioTracker(settings.InitialBalance)

	compEngine := compensation.New(store_, executor, tracker, policy.Compensation, policy.MaxPortfolioDrawdownFraction)
	sigParams := signal.Params{
		MLThresholdMin:        settings.ProbThreshold,
		RSIOverbought:         settings.RSIOverbought,
		RSIOversold:           settings.RSIOversold,
		ATRRatioCap:           settings.ATRRatioCap,
		VolumeRatioMin:        settings.VolumeRatioMin,
		StopLossATRMultiple:   2.0,
		TakeProfitATRMultiple: 3.0,
		TrailingStopFraction:  0.01,
		RiskFraction:          policy.RiskPerTradeFraction,
		MaxHoldDuration:       24 * time.Hour,
	}
	mon := monitor.New(store_, executor, compEngine, tradeLog, sigParams)

	gates := orchestrator.Gates{
		DrawdownLimitBreached: func() bool { return tracker.CurrentDrawdownFraction() >= settings.MaxDrawdownProtection },
		DailyLossLimitBreached: func() bool {
			snap := tracker.Snapshot()
			if snap.InitialBalance <= 0 {
				return false
			}
			return -snap.DailyPnL/snap.InitialBalance >= settings.MaxDailyLoss
		},
	}

	orch := orchestrator.New(orchestrator.Config{
		Feed:     feed,
		Features: computer,
		Scorer:   sc,
		Sizer:    sizer,
		Executor: executor,
		Store:    store_,
		Monitor:  mon,
		Gates:    gates,
		Recorder:     tradeLog,
		Params:       sigParams,
		Symbols:      settings.Symbols,
		Timeframe:    timeframe,
		TickInterval: time.Second,
	})

	ds := &dashboardSource{store: store_, tracker: tracker, settings: settings}
	board := dashboard.NewRiskDashboard(ds, settings.MetricsPort+1)
	if err := board.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start risk dashboard")
	}
	defer board.Stop()

	go refreshAccountLoop(ctx, executor, tracker, store, store_)
	go streamTicks(ctx, settings, store, computer)

	if err := orch.Run(ctx); err != nil {
		log.Error().Err(err).Msg("orchestrator exited with error")
	}

	tradeCount, realizedPnL := tradeLog.Summary()
	if err := store.WriteSessionResult(storage.SessionResult{
		EndedAt:     time.Now(),
		TradeCount:  tradeCount,
		RealizedPnL: realizedPnL,
		MaxDrawdown: tracker.CurrentDrawdownFraction(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to write session result")
	}
}

// refreshAccountLoop periodically pulls a fresh AccountSnapshot to keep the
// PortfolioTracker's balance current, and snapshots PositionStore to
// BoltDB so a restart can cross-check the exchange's own reconciliation.
func refreshAccountLoop(ctx context.Context, executor exchange.OrderExecutor, tracker *risk.PortfolioTracker, store *storage.Store, positions *position.Store) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if snap, err := executor.FetchAccount(ctx); err == nil {
				balance, _ := snap.TotalQuoteBalance.Float64()
				tracker.UpdateBalance(balance)
			}
			if err := store.SavePositionSnapshot(positions.All()); err != nil {
				log.Warn().Err(err).Msg("failed to snapshot positions")
			}
		}
	}
}

// streamTicks runs the raw trade/depth WebSocket feed and folds each
// message into the feature computer's rolling tick and depth imbalance
// state, persisting a copy of every message the way the original data
// collection pipeline did.
func streamTicks(ctx context.Context, settings cfg.Settings, store *storage.Store, computer *features.Computer) {
	ws := bitunix.NewWS(settings.WsURL)
	trades := make(chan bitunix.Trade, 1024)
	depths := make(chan bitunix.Depth, 1024)
	errs := make(chan error, 100)

	lastPrice := make(map[string]float64)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-trades:
				sign := int8(1)
				if prev, ok := lastPrice[t.Symbol]; ok && t.Price < prev {
					sign = -1
				}
				lastPrice[t.Symbol] = t.Price
				computer.UpdateTick(t.Symbol, sign)
				if err := store.StoreTrade(t); err != nil {
					log.Warn().Err(err).Str("symbol", t.Symbol).Msg("failed to persist trade")
				}
			case d := <-depths:
				computer.UpdateDepth(d.Symbol, d.BidVol, d.AskVol)
				if err := store.StoreDepth(d); err != nil {
					log.Warn().Err(err).Str("symbol", d.Symbol).Msg("failed to persist depth")
				}
			case err := <-errs:
				log.Warn().Err(err).Msg("websocket stream error")
			}
		}
	}()

	if err := ws.Stream(ctx, settings.Symbols, trades, depths, errs, settings.Ping); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("tick stream exited")
	}
}

// meteredRecorder layers order-count and realized-PnL Prometheus reporting
// on top of TradeLog's BoltDB persistence, using the teacher's
// MetricsWrapper facade rather than reaching into *Metrics directly.
type meteredRecorder struct {
	*storage.TradeLog
	wrapper *metrics.MetricsWrapper
}

func (r *meteredRecorder) RecordOpen(symbol string, side model.Side, price, qty float64) {
	r.TradeLog.RecordOpen(symbol, side, price, qty)
	r.wrapper.OrdersTotal().Inc()
}

func (r *meteredRecorder) RecordClose(symbol string, side model.Side, price, qty float64, reason string) {
	_, pnlBefore := r.TradeLog.Summary()
	r.TradeLog.RecordClose(symbol, side, price, qty, reason)
	_, pnlAfter := r.TradeLog.Summary()
	r.wrapper.PnLTotal().Add(pnlAfter - pnlBefore)
}

func riskPolicyFromSettings(settings cfg.Settings) model.RiskPolicy {
	return model.RiskPolicy{
		MaxPortfolioDrawdownFraction: settings.MaxDrawdownProtection,
		MaxConcurrentPositions:       len(settings.Symbols),
		MaxPortfolioHeat:             settings.MaxPositionExposure,
		MinRRRatio:                   1.5,
		KellyFractionCap:             settings.KellyFractionCap,
		KellyBase:                    settings.KellyBase,
		RiskPerTradeFraction:         settings.BaseSizeRatio,
		MaxSectorConcentration:       1.0,
		MaxPositionNotionalFraction:  settings.MaxPositionNotionalFraction,
		MinNotional:                  decimal.NewFromFloat(5),
		Compensation: model.CompensationPolicy{
			MaxHedgesPerPosition: 1,
			HedgeTriggerFraction: 0.02,
		},
	}
}

type dashboardSource struct {
	store    *position.Store
	tracker  *risk.PortfolioTracker
	settings cfg.Settings
}

func (d *dashboardSource) Positions() []model.Position { return d.store.All() }

func (d *dashboardSource) AccountStats() dashboard.AccountStats {
	snap := d.tracker.Snapshot()
	return dashboard.AccountStats{
		InitialBalance:        snap.InitialBalance,
		CurrentBalance:        snap.CurrentBalance,
		PeakBalance:           snap.PeakBalance,
		DailyPnL:              snap.DailyPnL,
		CurrentDrawdown:       d.tracker.CurrentDrawdownFraction(),
		MaxDrawdownProtection: d.settings.MaxDrawdownProtection,
		DailyLossLimit:        d.settings.MaxDailyLoss,
	}
}

func (d *dashboardSource) CircuitBreakerStatus() map[string]bool {
	return map[string]bool{
		"volatility": false,
		"imbalance":  false,
		"volume":     false,
		"error_rate": false,
	}
}

func (d *dashboardSource) CanTrade() (bool, string) {
	if d.tracker.CurrentDrawdownFraction() >= d.settings.MaxDrawdownProtection {
		return false, "Maximum Drawdown Protection"
	}
	snap := d.tracker.Snapshot()
	if snap.InitialBalance > 0 && -snap.DailyPnL/snap.InitialBalance >= d.settings.MaxDailyLoss {
		return false, "Daily Loss Limit"
	}
	return true, ""
}
