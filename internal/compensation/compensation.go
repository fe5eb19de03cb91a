// Package compensation implements CompensationEngine: the state machine
// that opens an offsetting hedge position when a losing position crosses
// its trigger threshold, and closes it once the hedge has achieved its
// target offset. The engine acts only when Evaluate is called for an open
// parent; closing the parent position does not close its hedge.
//
// The engine is bounded by RiskPolicy.Compensation.MaxHedgesPerPosition and
// disables itself entirely once portfolio drawdown exceeds
// MaxPortfolioDrawdownFraction, per the policy's guardrails.
package compensation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/qtraxis/livetrader/internal/exchange"
	"github.com/qtraxis/livetrader/internal/model"
	"github.com/qtraxis/livetrader/internal/position"
)

// DrawdownSource reports the portfolio's current drawdown fraction from its
// peak equity, used to disable compensation beyond the policy's limit.
type DrawdownSource interface {
	CurrentDrawdownFraction() float64
}

// Engine runs the NONE -> HEDGED -> CLOSED state machine for compensation
// links, one per position.
type Engine struct {
	mu             sync.Mutex
	store          *position.Store
	executor       exchange.OrderExecutor
	drawdown       DrawdownSource
	policy         model.CompensationPolicy
	maxDrawdown    float64
	links          map[string]*model.CompensationLink // keyed by parent position ID
	hedgeCount     map[string]int
}

// New builds an Engine bound to store, executor, drawdown, and policy.
// maxDrawdown is RiskPolicy.MaxPortfolioDrawdownFraction: once the
// portfolio's drawdown reaches it, the engine stops opening new hedges
// (existing hedges may still be closed out).
func New(store *position.Store, executor exchange.OrderExecutor, drawdown DrawdownSource, policy model.CompensationPolicy, maxDrawdown float64) *Engine {
	return &Engine{
		store:       store,
		executor:    executor,
		drawdown:    drawdown,
		policy:      policy,
		maxDrawdown: maxDrawdown,
		links:       make(map[string]*model.CompensationLink),
		hedgeCount:  make(map[string]int),
	}
}

// Evaluate advances the state machine for pos given its current unrealized
// loss fraction. A positive unrealizedFraction is a gain; compensation only
// ever triggers on losses (negative values).
func (e *Engine) Evaluate(ctx context.Context, pos model.Position, unrealizedFraction float64) error {
	switch pos.CompensationStatus {
	case model.CompensationNone:
		return e.maybeOpenHedge(ctx, pos, unrealizedFraction)
	case model.CompensationHedged:
		return e.maybeCloseHedge(ctx, pos, unrealizedFraction)
	default:
		return nil
	}
}

func (e *Engine) maybeOpenHedge(ctx context.Context, pos model.Position, unrealizedFraction float64) error {
	if unrealizedFraction >= -e.policy.HedgeTriggerFraction {
		return nil // loss hasn't crossed the trigger yet
	}
	if e.drawdown != nil && e.drawdown.CurrentDrawdownFraction() >= e.maxDrawdown {
		return nil // disabled beyond max portfolio drawdown
	}

	e.mu.Lock()
	count := e.hedgeCount[pos.ID]
	if count >= e.policy.MaxHedgesPerPosition {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	// The hedge opens on the same symbol, opposite side, resolving Open
	// Question (b): independent long/short sides on the same futures
	// symbol are how this exchange models a hedge, so no cross-instrument
	// routing is required.
	hedgeIntent := model.EntryIntent{
		Symbol:     pos.Symbol,
		Side:       pos.Side.Opposite(),
		EntryPrice: pos.EntryPrice,
	}
	fill, err := e.executor.Open(ctx, hedgeIntent, pos.Quantity)
	if err != nil {
		return fmt.Errorf("compensation: open hedge: %w", err)
	}

	link := &model.CompensationLink{
		ParentID:           pos.ID,
		ChildID:            fill.OrderID,
		TargetOffsetAmount: pos.Quantity * pos.EntryPrice * -unrealizedFraction,
		Reason:             "loss threshold breached",
	}

	e.mu.Lock()
	e.links[pos.ID] = link
	e.hedgeCount[pos.ID] = count + 1
	e.mu.Unlock()

	if err := e.store.Update(pos.Symbol, func(p *model.Position) {
		p.CompensationStatus = model.CompensationHedged
	}); err != nil {
		log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("failed to record hedge status")
	}

	log.Info().Str("symbol", pos.Symbol).Str("child_order", fill.OrderID).Msg("compensation hedge opened")
	return nil
}

func (e *Engine) maybeCloseHedge(ctx context.Context, pos model.Position, unrealizedFraction float64) error {
	e.mu.Lock()
	link, ok := e.links[pos.ID]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	achieved := pos.Quantity * pos.EntryPrice * maxFloat(0, -unrealizedFraction)
	link.AchievedOffset = achieved
	if achieved < link.TargetOffsetAmount {
		return nil // hedge hasn't offset enough yet
	}

	if err := e.executor.Cancel(ctx, link.ChildID); err != nil {
		return fmt.Errorf("compensation: close hedge: %w", err)
	}

	if err := e.store.Update(pos.Symbol, func(p *model.Position) {
		p.CompensationStatus = model.CompensationClosed
	}); err != nil {
		log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("failed to record hedge closure")
	}

	e.mu.Lock()
	delete(e.links, pos.ID)
	e.mu.Unlock()

	log.Info().Str("symbol", pos.Symbol).Msg("compensation hedge closed, offset achieved")
	return nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
