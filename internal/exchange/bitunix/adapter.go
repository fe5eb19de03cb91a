package bitunix

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/qtraxis/livetrader/internal/exchange"
	"github.com/qtraxis/livetrader/internal/model"
)

// Adapter implements exchange.OrderExecutor over one or more Bitunix REST
// base URLs, trying each in turn until one succeeds. This generalizes the
// teacher's single fixed base URL into an ordered fallback list, per
// the endpoint-fallback step of the OrderExecutor algorithm.
type Adapter struct {
	clients []*Client
}

// NewAdapter builds an Adapter backed by one Client per base URL in bases,
// in priority order.
func NewAdapter(key, secret string, bases []string, timeout time.Duration) *Adapter {
	clients := make([]*Client, 0, len(bases))
	for _, base := range bases {
		clients = append(clients, NewREST(key, secret, base, timeout))
	}
	return &Adapter{clients: clients}
}

// withFallback runs op against each client in order, returning the first
// success. All base URLs failing is reported through the last client's
// normalized error.
func (a *Adapter) withFallback(op func(*Client) error) error {
	var lastErr error
	for _, c := range a.clients {
		if err := op(c); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return normalizeError(lastErr)
}

func (a *Adapter) Open(ctx context.Context, intent model.EntryIntent, quantity float64) (exchange.Fill, error) {
	side := "BUY"
	if intent.Side == model.SideShort {
		side = "SELL"
	}
	req := OrderReq{
		Symbol:    intent.Symbol,
		Side:      side,
		TradeSide: "OPEN",
		Qty:       strconv.FormatFloat(quantity, 'f', -1, 64),
		OrderType: "MARKET",
	}

	var fill exchange.Fill
	err := a.withFallback(func(c *Client) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.PlaceWithTimeout(req); err != nil {
			return err
		}
		fill = exchange.Fill{OrderID: uuid.NewString(), FilledQty: quantity, FillPrice: intent.EntryPrice}
		return nil
	})
	return fill, err
}

func (a *Adapter) Close(ctx context.Context, pos model.Position, reason model.CloseReason) (exchange.Fill, error) {
	side := "SELL"
	if pos.Side == model.SideShort {
		side = "BUY"
	}
	req := OrderReq{
		Symbol:    pos.Symbol,
		Side:      side,
		TradeSide: "CLOSE",
		Qty:       strconv.FormatFloat(pos.Quantity, 'f', -1, 64),
		OrderType: "MARKET",
	}

	var fill exchange.Fill
	err := a.withFallback(func(c *Client) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.PlaceWithTimeout(req); err != nil {
			return err
		}
		fill = exchange.Fill{OrderID: uuid.NewString(), FilledQty: pos.Quantity}
		return nil
	})
	return fill, err
}

func (a *Adapter) Cancel(ctx context.Context, orderID string) error {
	return a.withFallback(func(c *Client) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return c.CancelOrder(CancelReq{OrderID: orderID})
	})
}

func (a *Adapter) FetchAccount(ctx context.Context) (model.AccountSnapshot, error) {
	var snapshot model.AccountSnapshot
	err := a.withFallback(func(c *Client) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		balances, err := c.FetchBalance()
		if err != nil {
			return err
		}
		free, total := decimal.Zero, decimal.Zero
		for _, b := range balances {
			free = free.Add(decimal.NewFromFloat(b.Free))
			total = total.Add(decimal.NewFromFloat(b.Total))
		}
		snapshot = model.AccountSnapshot{FreeQuoteBalance: free, TotalQuoteBalance: total, AsOf: time.Now()}
		return nil
	})
	return snapshot, err
}

func (a *Adapter) FetchOpenPositions(ctx context.Context) ([]model.Position, error) {
	var out []model.Position
	err := a.withFallback(func(c *Client) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		positions, err := c.FetchPositions()
		if err != nil {
			return err
		}
		out = make([]model.Position, 0, len(positions))
		for _, p := range positions {
			side := model.SideLong
			if strings.EqualFold(p.Side, "SELL") || strings.EqualFold(p.Side, "SHORT") {
				side = model.SideShort
			}
			out = append(out, model.Position{
				ID:         uuid.NewString(),
				Symbol:     p.Symbol,
				Side:       side,
				EntryPrice: p.EntryPrice,
				Quantity:   p.Qty,
				OpenedAt:   time.Now(),
			})
		}
		return nil
	})
	return out, err
}

// normalizeError maps exchange-specific errors into the fixed reason enum
// OrderExecutor callers rely on.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient"):
		return &exchange.Error{Reason: exchange.ReasonInsufficientFunds, Cause: err}
	case strings.Contains(msg, "market closed") || strings.Contains(msg, "market_closed"):
		return &exchange.Error{Reason: exchange.ReasonMarketClosed, Cause: err}
	case strings.Contains(msg, "price") && (strings.Contains(msg, "bound") || strings.Contains(msg, "deviat")):
		return &exchange.Error{Reason: exchange.ReasonPriceOutOfBounds, Cause: err}
	case strings.Contains(msg, "invalid symbol") || strings.Contains(msg, "unknown symbol"):
		return &exchange.Error{Reason: exchange.ReasonInvalidSymbol, Cause: err}
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return &exchange.Error{Reason: exchange.ReasonRateLimited, Cause: err}
	default:
		return &exchange.Error{Reason: exchange.ReasonUnknown, Cause: err}
	}
}

var _ exchange.OrderExecutor = (*Adapter)(nil)
