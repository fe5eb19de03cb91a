// Package marketdata implements MarketDataFeed: a bounded, ring-buffered
// cache of recent bars per (symbol, timeframe), fed by a polling or
// streaming source and exposing a degrade-aware health status.
package marketdata

import (
	"container/ring"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qtraxis/livetrader/internal/model"
)

// Health is MarketDataFeed's self-reported status.
type Health string

const (
	HealthOK       Health = "OK"
	HealthDegraded Health = "DEGRADED"
	HealthDown     Health = "DOWN"
)

// Source polls bars for one (symbol, timeframe) pair. A concrete adapter
// wraps an exchange's kline/market-data endpoint.
type Source interface {
	FetchLatest(ctx context.Context, symbol, timeframe string) ([]model.Bar, error)
}

type cacheKey struct {
	symbol, timeframe string
}

// Feed is the bounded bar cache. It generalizes the per-symbol ring buffer
// pattern used for price samples into one ring per (symbol, timeframe).
type Feed struct {
	source Source
	size   int

	mu      sync.RWMutex
	buffers map[cacheKey]*ring.Ring
	lens    map[cacheKey]int
	health  map[cacheKey]Health

	pollInterval time.Duration
	maxBackoff   time.Duration

	wg sync.WaitGroup
}

// New builds a Feed backed by source, retaining up to size bars per
// (symbol, timeframe) and polling every pollInterval (bounded exponential
// backoff with jitter on repeated failures, capped at maxBackoff).
func New(source Source, size int, pollInterval, maxBackoff time.Duration) *Feed {
	if size <= 0 {
		size = 1
	}
	return &Feed{
		source:       source,
		size:         size,
		buffers:      make(map[cacheKey]*ring.Ring),
		lens:         make(map[cacheKey]int),
		health:       make(map[cacheKey]Health),
		pollInterval: pollInterval,
		maxBackoff:   maxBackoff,
	}
}

// Subscribe begins polling symbol/timeframe on its own goroutine until the
// Feed is stopped. Calling Subscribe again for the same pair is a no-op.
func (f *Feed) Subscribe(ctx context.Context, symbol, timeframe string) {
	key := cacheKey{symbol, timeframe}
	f.mu.Lock()
	if _, exists := f.buffers[key]; exists {
		f.mu.Unlock()
		return
	}
	f.buffers[key] = ring.New(f.size)
	f.health[key] = HealthOK
	f.mu.Unlock()

	f.wg.Add(1)
	go f.pollLoop(ctx, key)
}

func (f *Feed) pollLoop(ctx context.Context, key cacheKey) {
	defer f.wg.Done()
	backoff := f.pollInterval

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		bars, err := f.source.FetchLatest(ctx, key.symbol, key.timeframe)
		if err != nil {
			f.setHealth(key, HealthDegraded)
			backoff = nextBackoff(backoff, f.maxBackoff)
			log.Warn().Err(err).Str("symbol", key.symbol).Str("timeframe", key.timeframe).
				Dur("next_poll", backoff).Msg("market data poll failed")
			continue
		}

		for _, bar := range bars {
			if err := bar.Valid(); err != nil {
				log.Warn().Err(err).Msg("rejecting invalid bar")
				continue
			}
			f.push(key, bar)
		}
		f.setHealth(key, HealthOK)
		backoff = f.pollInterval
	}
}

func (f *Feed) push(key cacheKey, bar model.Bar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.buffers[key]
	if !ok {
		return
	}
	r.Value = bar
	f.buffers[key] = r.Next()
	if f.lens[key] < f.size {
		f.lens[key]++
	}
}

func (f *Feed) setHealth(key cacheKey, h Health) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health[key] = h
}

// GetRecentBars returns up to n most recent bars for symbol/timeframe in
// ascending timestamp order.
func (f *Feed) GetRecentBars(symbol, timeframe string, n int) ([]model.Bar, error) {
	key := cacheKey{symbol, timeframe}
	f.mu.RLock()
	defer f.mu.RUnlock()

	r, ok := f.buffers[key]
	if !ok {
		return nil, fmt.Errorf("marketdata: no subscription for %s/%s", symbol, timeframe)
	}
	length := f.lens[key]
	if n > length {
		n = length
	}
	if n <= 0 {
		return nil, nil
	}

	out := make([]model.Bar, 0, n)
	cursor := r
	for i := 0; i < n; i++ {
		cursor = cursor.Prev()
		if bar, ok := cursor.Value.(model.Bar); ok {
			out = append([]model.Bar{bar}, out...)
		}
	}
	return out, nil
}

// HealthStatus returns the current health of symbol/timeframe's feed.
func (f *Feed) HealthStatus(symbol, timeframe string) Health {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if h, ok := f.health[cacheKey{symbol, timeframe}]; ok {
		return h
	}
	return HealthDown
}

// Stop waits for every Subscribe goroutine to exit; callers must cancel the
// context(s) passed to Subscribe before calling Stop.
func (f *Feed) Stop() {
	f.wg.Wait()
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	jitter := time.Duration(rand.Int63n(int64(next) / 4 + 1))
	return next - jitter/2
}
