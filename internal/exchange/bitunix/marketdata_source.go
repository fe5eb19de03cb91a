package bitunix

import (
	"context"
	"fmt"
	"time"

	"github.com/qtraxis/livetrader/internal/model"
)

// MarketDataSource implements marketdata.Source by polling the kline
// endpoint for the most recent closed candle on each call.
type MarketDataSource struct {
	client *Client
}

// NewMarketDataSource builds a MarketDataSource backed by client.
func NewMarketDataSource(client *Client) *MarketDataSource {
	return &MarketDataSource{client: client}
}

// FetchLatest returns the most recently closed bar for symbol/timeframe.
func (s *MarketDataSource) FetchLatest(ctx context.Context, symbol, timeframe string) ([]model.Bar, error) {
	interval, err := timeframeToInterval(timeframe)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	klines, err := s.client.GetKlines(symbol, interval, now.Add(-interval.duration()*2).UnixMilli(), now.UnixMilli(), 2)
	if err != nil {
		return nil, fmt.Errorf("marketdata: fetch klines: %w", err)
	}
	if len(klines) == 0 {
		return nil, nil
	}

	out := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		bar := model.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: time.UnixMilli(k.OpenTime),
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
		}
		if err := bar.Valid(); err != nil {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

func timeframeToInterval(timeframe string) (KlineInterval, error) {
	switch timeframe {
	case "1m":
		return Interval1m, nil
	case "5m":
		return Interval5m, nil
	case "15m":
		return Interval15m, nil
	case "1h":
		return Interval1h, nil
	case "4h":
		return Interval4h, nil
	case "1d":
		return Interval1d, nil
	default:
		return "", fmt.Errorf("marketdata: unsupported timeframe %q", timeframe)
	}
}

func (i KlineInterval) duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}
