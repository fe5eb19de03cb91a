// Package signal implements the stateless SignalEngine: pure functions that
// turn a FeatureFrame and scorer confidence into a Signal, an EntryIntent,
// or a close decision. It holds no per-symbol state between calls.
package signal

import (
	"time"

	"github.com/qtraxis/livetrader/internal/model"
)

// Params bundles the tunables SignalEngine needs that are not part of the
// immutable RiskPolicy (those belong to RiskSizer, not here).
type Params struct {
	MLThresholdMin        float64 // minimum scorer confidence; below this, no signal is produced
	RSIOverbought         float64 // longs require RSI below this
	RSIOversold           float64 // shorts require RSI above this
	ATRRatioCap           float64 // reject when atr/close meets or exceeds this
	VolumeRatioMin        float64 // volume must be at least volume_sma * this
	StopLossATRMultiple   float64
	TakeProfitATRMultiple float64 // take-profit distance as a multiple of the stop distance
	TrailingStopFraction  float64
	RiskFraction          float64
	MaxHoldDuration       time.Duration
}

// Evaluate turns a ready FeatureFrame and a scorer confidence into a Signal.
// Confidence below MLThresholdMin is rejected outright; otherwise a
// direction is only produced when every deterministic technical filter for
// that direction holds: Heikin-Ashi bullishness/bearishness, RSI room,
// a volatility cap on ATR relative to price, and volume confirmation
// against the volume SMA.
func Evaluate(symbol string, frame model.FeatureFrame, confidence float64, p Params) model.Signal {
	if !frame.Ready {
		return model.Signal{Symbol: symbol, Kind: model.SignalNone, Reason: "frame not ready", AtBar: frame.Bar}
	}
	if confidence < p.MLThresholdMin {
		return model.Signal{Symbol: symbol, Kind: model.SignalNone, Confidence: confidence, Reason: "confidence below ml_threshold_min", AtBar: frame.Bar}
	}

	var atrRatio float64
	if frame.Bar.Close != 0 {
		atrRatio = frame.ATR / frame.Bar.Close
	}
	volatilityOK := atrRatio < p.ATRRatioCap
	volumeOK := frame.Bar.Volume >= frame.VolumeSMA*p.VolumeRatioMin

	bullish := frame.HAClose > frame.HAOpen
	bearish := frame.HAClose < frame.HAOpen

	longOK := bullish && frame.RSI < p.RSIOverbought && volatilityOK && volumeOK
	shortOK := bearish && frame.RSI > p.RSIOversold && volatilityOK && volumeOK

	switch {
	case longOK:
		return model.Signal{Symbol: symbol, Kind: model.SignalBuy, Confidence: confidence, AtBar: frame.Bar}
	case shortOK:
		return model.Signal{Symbol: symbol, Kind: model.SignalSell, Confidence: confidence, AtBar: frame.Bar}
	default:
		return model.Signal{Symbol: symbol, Kind: model.SignalNone, Confidence: confidence, AtBar: frame.Bar}
	}
}

// BuildIntent turns an accepted BUY/SELL signal into an EntryIntent, placing
// the stop-loss StopLossATRMultiple ATRs from the entry price and the
// take-profit TakeProfitATRMultiple times that stop distance on the profit
// side. Calling
// BuildIntent with a SignalNone is a programmer error and panics.
func BuildIntent(sig model.Signal, frame model.FeatureFrame, p Params) model.EntryIntent {
	entry := frame.Bar.Close
	atr := frame.ATR

	var side model.Side
	var stop, tp float64
	switch sig.Kind {
	case model.SignalBuy:
		side = model.SideLong
		stop = entry - atr*p.StopLossATRMultiple
		tp = entry + (entry-stop)*p.TakeProfitATRMultiple
	case model.SignalSell:
		side = model.SideShort
		stop = entry + atr*p.StopLossATRMultiple
		tp = entry - (stop-entry)*p.TakeProfitATRMultiple
	default:
		panic("signal: BuildIntent called with a non-directional signal")
	}

	return model.EntryIntent{
		Symbol:               sig.Symbol,
		Side:                 side,
		EntryPrice:           entry,
		StopLossPrice:        stop,
		TakeProfitPrice:      tp,
		TrailingStopFraction: p.TrailingStopFraction,
		RiskFraction:         p.RiskFraction,
		ATRAtEntry:           atr,
		Confidence:           sig.Confidence,
	}
}

// ShouldClose decides whether an open position should be closed given the
// latest bar and (optionally) a fresh opposing signal. It returns ok=false
// when no close condition is met.
//
// STOP_LOSS and TRAILING_STOP are distinguished by pos.TrailingUpdated, not
// by which price happens to be tighter: once the trailing stop has actually
// advanced past the original stop, that stop price governs and a close
// against it is reported as TRAILING_STOP.
func ShouldClose(pos model.Position, frame model.FeatureFrame, latestSignal model.Signal, opened time.Time, now time.Time, p Params) (model.CloseReason, bool) {
	price := frame.Bar.Close

	stopPrice := pos.StopLossPrice
	stopReason := model.CloseStopLoss
	if pos.TrailingUpdated && pos.TrailingStopPrice > 0 {
		stopPrice = pos.TrailingStopPrice
		stopReason = model.CloseTrailingStop
	}

	if pos.Side == model.SideLong {
		if price <= stopPrice {
			return stopReason, true
		}
		if price >= pos.TakeProfitPrice {
			return model.CloseTakeProfit, true
		}
	} else {
		if price >= stopPrice {
			return stopReason, true
		}
		if price <= pos.TakeProfitPrice {
			return model.CloseTakeProfit, true
		}
	}

	if !frame.Ready {
		return model.CloseInsufficientLiquidity, true
	}

	if latestSignal.Kind != model.SignalNone {
		opposing := (pos.Side == model.SideLong && latestSignal.Kind == model.SignalSell) ||
			(pos.Side == model.SideShort && latestSignal.Kind == model.SignalBuy)
		if opposing {
			return model.CloseSignalReversal, true
		}
	}

	if p.MaxHoldDuration > 0 && now.Sub(opened) >= p.MaxHoldDuration {
		return model.CloseTimeExit, true
	}

	return "", false
}

// NextTrailingStop computes the updated trailing-stop price for pos given
// the latest close: new_stop = entry + side_sign * profit * trailing_fraction,
// where profit is the position's favorable move from entry. It never moves
// the stop against the position: for a long it can only rise, for a short
// it can only fall, and it never fires on an unprofitable move.
func NextTrailingStop(pos model.Position, price float64, trailingFraction float64) float64 {
	if trailingFraction <= 0 {
		return pos.TrailingStopPrice
	}

	sideSign := 1.0
	if pos.Side == model.SideShort {
		sideSign = -1.0
	}

	profit := (price - pos.EntryPrice) * sideSign
	if profit <= 0 {
		return pos.TrailingStopPrice
	}

	candidate := pos.EntryPrice + sideSign*profit*trailingFraction

	if pos.Side == model.SideLong {
		if pos.TrailingStopPrice == 0 || candidate > pos.TrailingStopPrice {
			return candidate
		}
		return pos.TrailingStopPrice
	}
	if pos.TrailingStopPrice == 0 || candidate < pos.TrailingStopPrice {
		return candidate
	}
	return pos.TrailingStopPrice
}
