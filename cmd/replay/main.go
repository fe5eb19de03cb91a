// Command replay drives the signal engine over historical bars fetched
// from the exchange's kline endpoint, so a strategy change or a new model
// can be sanity-checked against real-but-past data without touching a
// live account. It prints a session summary and writes one to storage,
// the same document the live orchestrator writes at shutdown.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qtraxis/livetrader/internal/cfg"
	"github.com/qtraxis/livetrader/internal/exchange/bitunix"
	"github.com/qtraxis/livetrader/internal/features"
	"github.com/qtraxis/livetrader/internal/historicaldata"
	"github.com/qtraxis/livetrader/internal/model"
	"github.com/qtraxis/livetrader/internal/scorer"
	"github.com/qtraxis/livetrader/internal/signal"
	"github.com/qtraxis/livetrader/internal/storage"
)

func main() {
	var (
		symbolsFlag = flag.String("symbols", "", "comma-separated symbols to replay (overrides config)")
		startDate   = flag.String("start", "", "start date YYYY-MM-DD (default: 7 days ago)")
		endDate     = flag.String("end", "", "end date YYYY-MM-DD (default: now)")
		timeframe   = flag.String("timeframe", "1m", "bar timeframe to replay")
		modelPath   = flag.String("model", "", "path to scoring model, overrides config")
		logLevel    = flag.String("log-level", "info", "debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *modelPath != "" {
		settings.ModelPath = *modelPath
	}

	symbols := settings.Symbols
	if *symbolsFlag != "" {
		symbols = parseSymbols(*symbolsFlag)
	}

	start := time.Now().AddDate(0, 0, -7)
	if *startDate != "" {
		start, err = time.Parse("2006-01-02", *startDate)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid start date")
		}
	}
	end := time.Now()
	if *endDate != "" {
		end, err = time.Parse("2006-01-02", *endDate)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid end date")
		}
	}

	store, err := storage.New(settings.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	client := bitunix.NewREST(settings.Key, settings.Secret, settings.BaseURL, settings.RESTTimeout)
	source := historicaldata.New(client)

	sc, err := scorer.New(settings.ModelPath, 5*time.Second, noopMetrics{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scorer")
	}
	if !sc.Available() {
		log.Warn().Msg("scorer unavailable: replay will produce no signals")
	}

	params := signal.Params{
		MLThresholdMin:        settings.ProbThreshold,
		RSIOverbought:         settings.RSIOverbought,
		RSIOversold:           settings.RSIOversold,
		ATRRatioCap:           settings.ATRRatioCap,
		VolumeRatioMin:        settings.VolumeRatioMin,
		StopLossATRMultiple:   2.0,
		TakeProfitATRMultiple: 3.0,
		TrailingStopFraction:  0.01,
		RiskFraction:          settings.BaseSizeRatio,
		MaxHoldDuration:       24 * time.Hour,
	}

	ctx := context.Background()
	result := sessionTotals{}
	for _, symbol := range symbols {
		bars, err := source.FetchRange(ctx, symbol, *timeframe, start, end)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed to fetch historical bars")
			continue
		}
		log.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("replaying")
		replaySymbol(ctx, symbol, bars, sc, params, &result)
	}

	log.Info().
		Int("trades", result.trades).
		Float64("realized_pnl", result.realizedPnL).
		Msg("replay complete")

	if err := store.WriteSessionResult(storage.SessionResult{
		StartedAt:   start,
		EndedAt:     end,
		TradeCount:  result.trades,
		RealizedPnL: result.realizedPnL,
		MaxDrawdown: result.maxDrawdownFraction(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to write session result")
	}
}

type sessionTotals struct {
	trades      int
	realizedPnL float64
	peakPnL     float64
	troughPnL   float64
}

func (s *sessionTotals) record(pnl float64) {
	s.trades++
	s.realizedPnL += pnl
	if s.realizedPnL > s.peakPnL {
		s.peakPnL = s.realizedPnL
	}
	if s.realizedPnL < s.troughPnL {
		s.troughPnL = s.realizedPnL
	}
}

func (s *sessionTotals) maxDrawdownFraction() float64 {
	if s.peakPnL <= 0 {
		return 0
	}
	dd := (s.peakPnL - s.troughPnL) / s.peakPnL
	if dd < 0 {
		return 0
	}
	return dd
}

// replaySymbol walks bars in order, maintaining at most one open synthetic
// position, scoring each bar the same way the live signal loop does and
// closing on the same stop-loss/take-profit/trailing/time-exit conditions
// evaluated by Monitor in the live path. Like the live monitor loop, it
// passes no opposing signal to ShouldClose, so a reversal never closes a
// replayed position.
func replaySymbol(ctx context.Context, symbol string, bars []model.Bar, sc *scorer.Scorer, params signal.Params, totals *sessionTotals) {
	computer := features.NewComputer(14, 14, 12, 26, 20, 50, 5*time.Minute, 500)

	var open *model.Position
	for _, bar := range bars {
		frame := computer.Compute(symbol, bar)
		if !frame.Ready {
			continue
		}

		if open != nil {
			if next := signal.NextTrailingStop(*open, bar.Close, params.TrailingStopFraction); next != open.TrailingStopPrice {
				open.TrailingStopPrice = next
				open.TrailingUpdated = true
			}
			reason, closeNow := signal.ShouldClose(*open, frame, model.Signal{Kind: model.SignalNone}, open.OpenedAt, bar.Timestamp, params)
			if closeNow {
				pnl := closePnL(*open, bar.Close)
				totals.record(pnl)
				log.Debug().Str("symbol", symbol).Str("reason", string(reason)).Float64("pnl", pnl).Msg("replay close")
				open = nil
			}
			continue
		}

		featureVec := []float32{
			float32(frame.ATR), float32(frame.RSI), float32(frame.EMAFast - frame.EMASlow),
			float32(frame.DepthImbalance), float32(frame.TickImbalance),
			float32(frame.Bar.Close - frame.VWAP),
		}
		confidence, err := sc.Score(ctx, featureVec)
		if err != nil {
			continue
		}

		sig := signal.Evaluate(symbol, frame, confidence, params)
		if sig.Kind == model.SignalNone {
			continue
		}
		intent := signal.BuildIntent(sig, frame, params)
		pos := model.Position{
			Symbol:            symbol,
			Side:              intent.Side,
			EntryPrice:        intent.EntryPrice,
			Quantity:          1,
			StopLossPrice:     intent.StopLossPrice,
			TakeProfitPrice:   intent.TakeProfitPrice,
			HighWaterPrice:    intent.EntryPrice,
			OpenedAt:          bar.Timestamp,
			ATRAtEntry:        intent.ATRAtEntry,
			ConfidenceAtEntry: intent.Confidence,
			Status:            model.StatusOpen,
		}
		open = &pos
	}
}

func closePnL(pos model.Position, exitPrice float64) float64 {
	if pos.Side == model.SideLong {
		return (exitPrice - pos.EntryPrice) * pos.Quantity
	}
	return (pos.EntryPrice - exitPrice) * pos.Quantity
}

func parseSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// noopMetrics discards scorer telemetry during replay runs, which have no
// live Prometheus registry to report to.
type noopMetrics struct{}

func (noopMetrics) MLPredictionsInc()                  {}
func (noopMetrics) MLFailuresInc()                     {}
func (noopMetrics) MLLatencyObserve(float64)           {}
func (noopMetrics) MLModelAgeSet(float64)              {}
func (noopMetrics) MLPredictionScoresObserve(float64)  {}
func (noopMetrics) MLTimeoutsInc()                     {}
