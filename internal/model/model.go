// Package model holds the data types shared by every trading component:
// bars, features, signals, intents, positions, compensation links, account
// snapshots, and the immutable risk policy.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is a position or order direction.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Bar is one OHLCV candle for a symbol/timeframe.
type Bar struct {
	Symbol    string
	Timeframe string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Valid checks the bar's internal OHLC invariant:
// low <= min(open, close) <= max(open, close) <= high.
func (b Bar) Valid() error {
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	if b.Low > lo || hi > b.High {
		return fmt.Errorf("model: bar %s@%s violates OHLC invariant: low=%v open=%v close=%v high=%v",
			b.Symbol, b.Timestamp, b.Low, b.Open, b.Close, b.High)
	}
	return nil
}

// FeatureFrame wraps a Bar with the derived indicator columns a FeatureComputer
// produces from it. Ready is false until enough history has accumulated to
// compute every column; the SignalEngine must not act on a frame with
// Ready == false.
type FeatureFrame struct {
	Bar             Bar
	ATR             float64
	RSI             float64
	HAOpen          float64
	HAClose         float64
	EMAFast         float64
	EMASlow         float64
	VolumeSMA       float64
	DepthImbalance  float64 // order book bid/ask imbalance at the last depth update, [-1, 1]
	TickImbalance   float64 // signed trade-tick ratio over the tick window, [-1, 1]
	VWAP            float64
	VWAPStdDev      float64
	Ready           bool
}

// SignalKind is the direction (or absence) of a generated signal.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
	SignalNone SignalKind = "NONE"
)

// CloseReason enumerates why PositionMonitor decided to close a position.
type CloseReason string

const (
	CloseStopLoss             CloseReason = "STOP_LOSS"
	CloseTrailingStop         CloseReason = "TRAILING_STOP"
	CloseTakeProfit           CloseReason = "TAKE_PROFIT"
	CloseSignalReversal       CloseReason = "SIGNAL_REVERSAL"
	CloseTimeExit             CloseReason = "TIME_EXIT"
	CloseInsufficientLiquidity CloseReason = "INSUFFICIENT_LIQUIDITY"
	CloseExternallyClosed     CloseReason = "EXTERNALLY_CLOSED"
)

// Signal is the SignalEngine's verdict for one bar.
type Signal struct {
	Symbol     string
	Kind       SignalKind
	Confidence float64 // [0, 1]
	Reason     string
	AtBar      Bar
}

// EntryIntent describes a proposed trade before risk sizing accepts or
// rejects it.
type EntryIntent struct {
	Symbol               string
	Side                 Side
	EntryPrice           float64
	StopLossPrice        float64
	TakeProfitPrice      float64
	TrailingStopFraction float64
	RiskFraction         float64
	ATRAtEntry           float64
	Confidence           float64
}

// Validate checks the stop/take-profit placement and minimum reward:risk
// invariants from the risk policy.
func (e EntryIntent) Validate(minRR float64) error {
	if e.Side == SideLong {
		if e.StopLossPrice >= e.EntryPrice {
			return fmt.Errorf("model: long stop %v must be below entry %v", e.StopLossPrice, e.EntryPrice)
		}
		if e.TakeProfitPrice <= e.EntryPrice {
			return fmt.Errorf("model: long take-profit %v must be above entry %v", e.TakeProfitPrice, e.EntryPrice)
		}
	} else {
		if e.StopLossPrice <= e.EntryPrice {
			return fmt.Errorf("model: short stop %v must be above entry %v", e.StopLossPrice, e.EntryPrice)
		}
		if e.TakeProfitPrice >= e.EntryPrice {
			return fmt.Errorf("model: short take-profit %v must be below entry %v", e.TakeProfitPrice, e.EntryPrice)
		}
	}
	risk := abs(e.EntryPrice - e.StopLossPrice)
	reward := abs(e.TakeProfitPrice - e.EntryPrice)
	if risk == 0 || reward/risk < minRR {
		return fmt.Errorf("model: reward:risk %.3f below minimum %.3f", reward/risk, minRR)
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// PositionStatus is the lifecycle state of a Position record.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// Position is the sole mutable record of a live holding. It is owned
// exclusively by PositionStore: created by the Orchestrator once
// OrderExecutor.Open has filled, mutated in place by PositionMonitor, and
// removed by PositionMonitor once OrderExecutor.Close has succeeded.
type Position struct {
	ID                 string
	Symbol             string
	Side               Side
	EntryPrice         float64
	Quantity           float64
	StopLossPrice      float64
	TakeProfitPrice    float64
	TrailingStopPrice  float64
	HighWaterPrice     float64 // best price seen since entry, drives trailing stop
	OpenedAt           time.Time
	PendingClose       bool
	CompensationStatus CompensationStatus

	CurrentPrice      float64 // last price observed by PositionMonitor
	UnrealizedPnL     float64
	ATRAtEntry        float64
	ConfidenceAtEntry float64
	StrategyTag       string
	TrailingUpdated   bool // set once the trailing stop has advanced past the original stop
	ParentID          string // set on a compensation hedge; empty for a standalone position
	Status            PositionStatus
}

// CompensationStatus is the state of a position's compensation state
// machine.
type CompensationStatus string

const (
	CompensationNone   CompensationStatus = "NONE"
	CompensationHedged CompensationStatus = "HEDGED"
	CompensationClosed CompensationStatus = "CLOSED"
)

// CompensationLink ties a losing parent position to the hedge position
// opened to offset it. Exactly one child per parent.
type CompensationLink struct {
	ParentID           string
	ChildID            string
	TargetOffsetAmount float64
	AchievedOffset     float64
	Reason             string
}

// Valid reports whether the link's child sits on the opposite side from its
// parent, which is required for the link to actually offset risk.
func (c CompensationLink) Valid(parentSide, childSide Side) bool {
	return childSide == parentSide.Opposite()
}

// AccountSnapshot is a point-in-time read of exchange balances. It must be
// refreshed for every sizing decision and never cached across decisions.
type AccountSnapshot struct {
	FreeQuoteBalance  decimal.Decimal
	TotalQuoteBalance decimal.Decimal
	AsOf              time.Time
}

// CompensationPolicy bounds the CompensationEngine's hedging behavior.
type CompensationPolicy struct {
	MaxHedgesPerPosition int
	HedgeTriggerFraction float64 // unrealized loss fraction that triggers a hedge
}

// RiskPolicy is immutable trading configuration shared by RiskSizer,
// CompensationEngine, and the Orchestrator's pre-trade gates.
type RiskPolicy struct {
	MaxPortfolioDrawdownFraction float64
	MaxConcurrentPositions       int
	MaxPortfolioHeat             float64
	MinRRRatio                   float64
	KellyFractionCap             float64
	KellyBase                    float64 // confidence multiplier in the Kelly-style scaling step
	RiskPerTradeFraction         float64
	MaxSectorConcentration       float64
	MaxPositionNotionalFraction  float64 // caps a single position's notional as a fraction of total balance
	MinNotional                  decimal.Decimal
	Compensation                 CompensationPolicy
}
