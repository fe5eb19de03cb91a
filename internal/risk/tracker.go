package risk

import (
	"sync"
	"time"
)

// PortfolioTracker holds the running balance/drawdown bookkeeping the
// Orchestrator's pre-trade gates, CompensationEngine's drawdown guard, and
// the risk dashboard all read from. It is the one place live account state
// accumulates outside of PositionStore.
type PortfolioTracker struct {
	mu             sync.Mutex
	initialBalance float64
	peakBalance    float64
	currentBalance float64
	dailyStartBalance float64
	dailyResetAt   time.Time
}

// NewPortfolioTracker seeds the tracker with the account's starting
// balance.
func NewPortfolioTracker(initialBalance float64) *PortfolioTracker {
	now := time.Now()
	return &PortfolioTracker{
		initialBalance:    initialBalance,
		peakBalance:       initialBalance,
		currentBalance:    initialBalance,
		dailyStartBalance: initialBalance,
		dailyResetAt:      now,
	}
}

// UpdateBalance folds a fresh account balance reading into the tracker,
// advancing the peak and rolling the daily baseline over at UTC midnight.
func (t *PortfolioTracker) UpdateBalance(balance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	last := t.dailyResetAt.UTC()
	if now.YearDay() != last.YearDay() || now.Year() != last.Year() {
		t.dailyStartBalance = balance
		t.dailyResetAt = now
	}

	t.currentBalance = balance
	if balance > t.peakBalance {
		t.peakBalance = balance
	}
}

// CurrentDrawdownFraction returns the fraction the current balance sits
// below the peak balance, implementing compensation.DrawdownSource.
func (t *PortfolioTracker) CurrentDrawdownFraction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.peakBalance <= 0 {
		return 0
	}
	dd := (t.peakBalance - t.currentBalance) / t.peakBalance
	if dd < 0 {
		return 0
	}
	return dd
}

// DailyPnL returns the change in balance since the current UTC day began.
func (t *PortfolioTracker) DailyPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentBalance - t.dailyStartBalance
}

// Snapshot returns the balances the dashboard and drawdown gate need in one
// consistent read.
type Snapshot struct {
	InitialBalance float64
	CurrentBalance float64
	PeakBalance    float64
	DailyPnL       float64
}

// Snapshot returns the tracker's current balances.
func (t *PortfolioTracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		InitialBalance: t.initialBalance,
		CurrentBalance: t.currentBalance,
		PeakBalance:    t.peakBalance,
		DailyPnL:       t.currentBalance - t.dailyStartBalance,
	}
}
