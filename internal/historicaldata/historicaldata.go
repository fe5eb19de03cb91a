// Package historicaldata provides a concrete HistoricalDataSource over an
// exchange's kline endpoint, so the signal-generation logic can be driven
// by historical bars through cmd/replay as well as by live market data.
package historicaldata

import (
	"context"
	"fmt"
	"time"

	"github.com/qtraxis/livetrader/internal/exchange/bitunix"
	"github.com/qtraxis/livetrader/internal/model"
)

// KlineClient is the subset of bitunix.Client this package depends on.
type KlineClient interface {
	GetKlines(symbol string, interval bitunix.KlineInterval, startTime, endTime int64, limit int) ([]bitunix.Kline, error)
}

// Source implements HistoricalDataSource by paging through an exchange's
// kline endpoint.
type Source struct {
	client KlineClient
}

// New builds a Source backed by client.
func New(client KlineClient) *Source {
	return &Source{client: client}
}

// timeframeToInterval maps the spec's timeframe strings onto the exchange's
// kline interval enum.
func timeframeToInterval(timeframe string) (bitunix.KlineInterval, error) {
	switch timeframe {
	case "1m":
		return bitunix.Interval1m, nil
	case "5m":
		return bitunix.Interval5m, nil
	case "15m":
		return bitunix.Interval15m, nil
	case "1h":
		return bitunix.Interval1h, nil
	case "4h":
		return bitunix.Interval4h, nil
	case "1d":
		return bitunix.Interval1d, nil
	default:
		return "", fmt.Errorf("historicaldata: unsupported timeframe %q", timeframe)
	}
}

// FetchRange returns bars for symbol/timeframe between from and to,
// ascending by timestamp, paging through the exchange's limit-bounded
// kline endpoint as needed.
func (s *Source) FetchRange(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]model.Bar, error) {
	interval, err := timeframeToInterval(timeframe)
	if err != nil {
		return nil, err
	}

	const pageLimit = 500
	var out []model.Bar
	cursor := from.UnixMilli()
	end := to.UnixMilli()

	for cursor < end {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		klines, err := s.client.GetKlines(symbol, interval, cursor, end, pageLimit)
		if err != nil {
			return out, fmt.Errorf("historicaldata: fetch klines: %w", err)
		}
		if len(klines) == 0 {
			break
		}
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
		last := klines[len(klines)-1]
		if last.CloseTime <= cursor {
			break // endpoint isn't advancing, avoid an infinite loop
		}
		cursor = last.CloseTime + 1
		if len(klines) < pageLimit {
			break
		}
	}

	return out, nil
}
