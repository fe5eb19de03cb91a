package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortfolioTracker_UpdateBalance_TracksPeak(t *testing.T) {
	tr := NewPortfolioTracker(1000)
	tr.UpdateBalance(1200)
	tr.UpdateBalance(1100)

	snap := tr.Snapshot()
	assert.Equal(t, 1000.0, snap.InitialBalance)
	assert.Equal(t, 1200.0, snap.PeakBalance)
	assert.Equal(t, 1100.0, snap.CurrentBalance)
}

func TestPortfolioTracker_CurrentDrawdownFraction(t *testing.T) {
	tr := NewPortfolioTracker(1000)
	tr.UpdateBalance(1200)
	tr.UpdateBalance(900)

	dd := tr.CurrentDrawdownFraction()
	assert.InDelta(t, (1200.0-900.0)/1200.0, dd, 1e-9)
}

func TestPortfolioTracker_CurrentDrawdownFraction_NeverNegative(t *testing.T) {
	tr := NewPortfolioTracker(1000)
	tr.UpdateBalance(1500)

	assert.Equal(t, 0.0, tr.CurrentDrawdownFraction())
}

func TestPortfolioTracker_DailyPnL_TracksIntradayChange(t *testing.T) {
	tr := NewPortfolioTracker(1000)
	tr.UpdateBalance(1050)

	assert.InDelta(t, 50.0, tr.DailyPnL(), 1e-9)
}
