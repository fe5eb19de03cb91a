package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBar_Valid(t *testing.T) {
	good := Bar{Symbol: "BTCUSDT", Timeframe: "1m", Timestamp: time.Now(), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	assert.NoError(t, good.Valid())

	cases := []Bar{
		{Symbol: "BTCUSDT", Timeframe: "1m", Open: 1, High: 1, Low: 2, Close: 1.5},
		{Symbol: "BTCUSDT", Timeframe: "1m", Open: 3, High: 2, Low: 1, Close: 1.5},
	}
	for _, c := range cases {
		assert.Error(t, c.Valid())
	}
}

func TestEntryIntent_Validate_Long(t *testing.T) {
	good := EntryIntent{Symbol: "BTCUSDT", Side: SideLong, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	assert.NoError(t, good.Validate(1.5))

	stopAboveEntry := EntryIntent{Symbol: "BTCUSDT", Side: SideLong, EntryPrice: 100, StopLossPrice: 105, TakeProfitPrice: 110}
	assert.Error(t, stopAboveEntry.Validate(1.5))

	poorRR := EntryIntent{Symbol: "BTCUSDT", Side: SideLong, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 102}
	assert.Error(t, poorRR.Validate(1.5), "reward:risk below minimum must be rejected")
}

func TestEntryIntent_Validate_Short(t *testing.T) {
	good := EntryIntent{Symbol: "BTCUSDT", Side: SideShort, EntryPrice: 100, StopLossPrice: 105, TakeProfitPrice: 90}
	assert.NoError(t, good.Validate(1.5))

	tpAboveEntry := EntryIntent{Symbol: "BTCUSDT", Side: SideShort, EntryPrice: 100, StopLossPrice: 105, TakeProfitPrice: 110}
	assert.Error(t, tpAboveEntry.Validate(1.5))
}

func TestCompensationLink_Valid(t *testing.T) {
	var link CompensationLink
	assert.True(t, link.Valid(SideLong, SideShort))
	assert.False(t, link.Valid(SideLong, SideLong), "a hedge on the same side as the parent does not offset risk")
}

func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, SideShort, SideLong.Opposite())
	assert.Equal(t, SideLong, SideShort.Opposite())
}

func TestPosition_DefaultsToOpenWithNoTrailingUpdate(t *testing.T) {
	pos := Position{Symbol: "BTCUSDT", Status: StatusOpen}
	assert.Equal(t, StatusOpen, pos.Status)
	assert.False(t, pos.TrailingUpdated, "a freshly opened position has not had its trailing stop advanced yet")
}
