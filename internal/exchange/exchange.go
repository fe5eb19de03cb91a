// Package exchange defines the OrderExecutor interface — the trading
// system's sole boundary to a live exchange — plus its normalized error
// enum. Concrete adapters (e.g. internal/exchange/bitunix) implement it.
package exchange

import (
	"context"

	"github.com/qtraxis/livetrader/internal/model"
)

// Reason normalizes an exchange rejection into one of a fixed set of
// causes, so the rest of the system never has to parse exchange-specific
// error strings.
type Reason string

const (
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS"
	ReasonMarketClosed      Reason = "MARKET_CLOSED"
	ReasonPriceOutOfBounds  Reason = "PRICE_OUT_OF_BOUNDS"
	ReasonInvalidSymbol     Reason = "INVALID_SYMBOL"
	ReasonRateLimited       Reason = "RATE_LIMITED"
	ReasonUnknown           Reason = "UNKNOWN"
)

// Error is a normalized exchange error carrying both the Reason and the
// underlying cause for logging.
type Error struct {
	Reason Reason
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Reason) + ": " + e.Cause.Error()
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Fill is the result of a successfully placed order.
type Fill struct {
	OrderID    string
	FilledQty  float64
	FillPrice  float64
}

// OrderExecutor is the trading system's sole boundary to a live exchange.
// Every call may block on network I/O and must honor ctx cancellation.
type OrderExecutor interface {
	// Open submits a new position entry for intent sized at quantity.
	Open(ctx context.Context, intent model.EntryIntent, quantity float64) (Fill, error)
	// Close submits a close for the given open position.
	Close(ctx context.Context, pos model.Position, reason model.CloseReason) (Fill, error)
	// Cancel cancels a resting order by ID.
	Cancel(ctx context.Context, orderID string) error
	// FetchAccount returns a fresh AccountSnapshot; callers must not cache
	// the result across sizing decisions.
	FetchAccount(ctx context.Context) (model.AccountSnapshot, error)
	// FetchOpenPositions returns the exchange's own view of open positions,
	// used by the Orchestrator's reconciliation pass on startup.
	FetchOpenPositions(ctx context.Context) ([]model.Position, error)
}
