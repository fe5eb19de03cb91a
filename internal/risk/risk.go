// Package risk implements the Kelly-scaled position sizing described for
// RiskSizer: it turns an EntryIntent plus the current account and portfolio
// state into either an accepted order size or a typed rejection reason.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/qtraxis/livetrader/internal/model"
)

// RejectionReason enumerates why RiskSizer refused to size an intent.
type RejectionReason string

const (
	RejectInsufficientBalance   RejectionReason = "INSUFFICIENT_BALANCE"
	RejectStopTooTight          RejectionReason = "STOP_TOO_TIGHT"
	RejectPositionCountCap      RejectionReason = "POSITION_COUNT_CAP"
	RejectSectorConcentration   RejectionReason = "SECTOR_CONCENTRATION_CAP"
	RejectPortfolioHeatCap      RejectionReason = "PORTFOLIO_HEAT_CAP"
	RejectBelowMinNotional      RejectionReason = "BELOW_MIN_NOTIONAL"
)

// Decision is RiskSizer's verdict: either Accepted with a sized Quantity, or
// rejected with a Reason.
type Decision struct {
	Accepted bool
	Quantity float64
	Reason   RejectionReason
}

// PortfolioState is the subset of live portfolio facts RiskSizer needs that
// it cannot derive from the intent alone.
type PortfolioState struct {
	OpenPositionCount    int
	OpenPositionsInSector int
	CurrentHeatFraction  float64 // sum of at-risk fractions already committed
	WinRate              float64
	AvgWinLossRatio      float64 // average winning trade / average losing trade, in absolute value
}

// Sizer sizes entries against an immutable RiskPolicy.
type Sizer struct {
	policy model.RiskPolicy
}

// New builds a Sizer bound to policy. The policy is treated as immutable for
// the Sizer's lifetime, matching the spec's RiskPolicy contract.
func New(policy model.RiskPolicy) *Sizer {
	return &Sizer{policy: policy}
}

// Size runs the eight-step sizing algorithm:
//  1. reject if the stop distance is too tight to size meaningfully
//  2. compute the base risk amount from free balance and risk-per-trade
//  3. derive the base quantity from the risk amount and stop distance
//  4. scale by a Kelly-style factor driven by the intent's own confidence
//  5. reject if adding this risk would exceed the portfolio heat cap
//  6. cap notional at total_quote_balance * max_position_notional_fraction
//  7. reject if the resulting notional is below the exchange minimum
//  8. clamp quantity so the sized risk never exceeds the risk budget
//
// Reject checks for balance, position count, and sector concentration are
// interleaved ahead of these per the teacher's early-exit ordering.
func (s *Sizer) Size(intent model.EntryIntent, account model.AccountSnapshot, portfolio PortfolioState) Decision {
	free := account.FreeQuoteBalance
	if free.LessThanOrEqual(decimal.Zero) {
		return Decision{Reason: RejectInsufficientBalance}
	}

	stopDistance := intent.EntryPrice - intent.StopLossPrice
	if stopDistance < 0 {
		stopDistance = -stopDistance
	}
	if stopDistance <= 0 || stopDistance/intent.EntryPrice < 1e-5 {
		return Decision{Reason: RejectStopTooTight}
	}

	if portfolio.OpenPositionCount >= s.policy.MaxConcurrentPositions {
		return Decision{Reason: RejectPositionCountCap}
	}

	if s.policy.MaxSectorConcentration > 0 {
		sectorFraction := float64(portfolio.OpenPositionsInSector+1) / float64(s.policy.MaxConcurrentPositions)
		if sectorFraction > s.policy.MaxSectorConcentration {
			return Decision{Reason: RejectSectorConcentration}
		}
	}

	riskAmount := free.Mul(decimal.NewFromFloat(s.policy.RiskPerTradeFraction))
	riskAmountFloat, _ := riskAmount.Float64()
	quantity := riskAmountFloat / stopDistance

	// Step 4: Kelly-style scaling off the intent's own confidence — a
	// portfolio win rate isn't available yet at entry time.
	kelly := kellyFraction(intent.Confidence, s.policy.KellyBase, s.policy.KellyFractionCap)
	quantity *= kelly

	projectedHeat := portfolio.CurrentHeatFraction + s.policy.RiskPerTradeFraction*kelly
	if projectedHeat > s.policy.MaxPortfolioHeat {
		return Decision{Reason: RejectPortfolioHeatCap}
	}

	notional := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(intent.EntryPrice))
	if s.policy.MaxPositionNotionalFraction > 0 {
		maxNotional := account.TotalQuoteBalance.Mul(decimal.NewFromFloat(s.policy.MaxPositionNotionalFraction))
		if notional.GreaterThan(maxNotional) {
			notional = maxNotional
			quantity, _ = maxNotional.Div(decimal.NewFromFloat(intent.EntryPrice)).Float64()
		}
	}

	if notional.LessThan(s.policy.MinNotional) {
		return Decision{Reason: RejectBelowMinNotional}
	}

	// Step 8: invariant check — base_quantity * stop_distance must never
	// exceed the risk budget beyond a small floating-point tolerance.
	const tolerance = 0.01
	if maxQty := riskAmountFloat * (1 + tolerance) / stopDistance; quantity > maxQty {
		quantity = maxQty
	}

	return Decision{Accepted: true, Quantity: quantity}
}

// kellyFraction scales the intent's confidence into a position-sizing
// factor: min(kellyFractionCap, confidence * kellyBase).
func kellyFraction(confidence, kellyBase, kellyFractionCap float64) float64 {
	if confidence <= 0 || kellyBase <= 0 {
		return 0
	}
	f := confidence * kellyBase
	if f > kellyFractionCap {
		f = kellyFractionCap
	}
	if f < 0 {
		f = 0
	}
	return f
}
