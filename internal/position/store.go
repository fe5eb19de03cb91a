// Package position implements PositionStore: the sole owner of live
// Position records. All access goes through a single mutex and every
// operation is kept short — no network calls are ever made while the lock
// is held.
package position

import (
	"fmt"
	"sync"

	"github.com/qtraxis/livetrader/internal/model"
)

// Store holds the live position set keyed by symbol. It generalizes the
// parallel positionSizes/stopLosses/takeProfits/trailingStops maps the
// teacher guarded with one mutex into a single map of owned Position
// records.
type Store struct {
	mu        sync.Mutex
	positions map[string]*model.Position
}

// New returns an empty Store.
func New() *Store {
	return &Store{positions: make(map[string]*model.Position)}
}

// Create adds a new position for symbol. It returns an error if one already
// exists for that symbol — PositionStore does not allow two concurrent
// positions on the same symbol.
func (s *Store) Create(pos model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.positions[pos.Symbol]; exists {
		return fmt.Errorf("position: symbol %s already has an open position", pos.Symbol)
	}
	p := pos
	s.positions[pos.Symbol] = &p
	return nil
}

// Get returns a copy of the position for symbol, or ok=false if none is
// open. Returning a copy keeps callers from mutating state outside the
// lock.
func (s *Store) Get(symbol string) (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// Update applies fn to the stored position for symbol under the lock and
// persists the result. fn must not block or perform I/O — PositionMonitor
// calls Update for trailing-stop and compensation-status changes, then
// releases the lock before making any network call.
func (s *Store) Update(symbol string, fn func(*model.Position)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[symbol]
	if !ok {
		return fmt.Errorf("position: no open position for symbol %s", symbol)
	}
	fn(p)
	return nil
}

// MarkPendingClose sets the pending-close flag, returning false if it was
// already set. This is the sole coordination mechanism guarding against a
// double-submission of a close order: callers check-and-set this flag
// before releasing the lock to make the close request, never holding the
// lock across the RPC itself.
func (s *Store) MarkPendingClose(symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[symbol]
	if !ok {
		return false, fmt.Errorf("position: no open position for symbol %s", symbol)
	}
	if p.PendingClose {
		return false, nil
	}
	p.PendingClose = true
	return true, nil
}

// ClearPendingClose unsets the pending-close flag without removing the
// position, used when a close attempt fails and should be retryable.
func (s *Store) ClearPendingClose(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.positions[symbol]; ok {
		p.PendingClose = false
	}
}

// Remove deletes the position for symbol. PositionMonitor calls this after
// a close order has been filled; startup reconciliation calls it for local
// positions the exchange no longer reports.
func (s *Store) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, symbol)
}

// All returns a snapshot copy of every open position, safe to range over
// without holding the store's lock.
func (s *Store) All() []model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	return out
}

// Count returns the number of open positions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions)
}
