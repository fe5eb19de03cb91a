package features

import (
	"math"
	"testing"
	"time"

	"github.com/qtraxis/livetrader/internal/model"
)

func mkBar(ts int64, open, high, low, close, volume float64) model.Bar {
	return model.Bar{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Timestamp: time.Unix(ts, 0),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

func TestComputer_Compute_NotReadyUntilWarmupPeriod(t *testing.T) {
	c := NewComputer(3, 3, 2, 4, 3, 10, time.Minute, 50)
	frame := c.Compute("BTCUSDT", mkBar(1, 100, 101, 99, 100, 10))
	if frame.Ready {
		t.Errorf("Ready = true on first bar, want false")
	}
}

func TestComputer_Compute_ReadyAfterWarmupPeriod(t *testing.T) {
	c := NewComputer(3, 3, 2, 4, 3, 10, time.Minute, 50)
	var frame model.FeatureFrame
	for i := int64(0); i < 10; i++ {
		frame = c.Compute("BTCUSDT", mkBar(i, 100, 101, 99, 100+float64(i), 10))
	}
	if !frame.Ready {
		t.Errorf("Ready = false after warmup period, want true")
	}
}

func TestComputer_Compute_SeparatesStatePerSymbol(t *testing.T) {
	c := NewComputer(3, 3, 2, 4, 3, 10, time.Minute, 50)
	for i := int64(0); i < 10; i++ {
		c.Compute("BTCUSDT", mkBar(i, 100, 101, 99, 100, 10))
	}
	frame := c.Compute("ETHUSDT", mkBar(0, 10, 11, 9, 10, 5))
	if frame.Ready {
		t.Errorf("a fresh symbol must not inherit another symbol's warmup progress")
	}
}

func TestComputer_UpdateDepth_FeedsNextFrame(t *testing.T) {
	c := NewComputer(3, 3, 2, 4, 3, 10, time.Minute, 50)
	c.UpdateDepth("BTCUSDT", 150, 100)
	frame := c.Compute("BTCUSDT", mkBar(1, 100, 101, 99, 100, 10))
	want := DepthImb(150, 100)
	if math.Abs(frame.DepthImbalance-want) > 1e-9 {
		t.Errorf("DepthImbalance = %v, want %v", frame.DepthImbalance, want)
	}
}

func TestComputer_UpdateTick_FeedsTickImbalance(t *testing.T) {
	c := NewComputer(3, 3, 2, 4, 3, 10, time.Minute, 50)
	c.UpdateTick("BTCUSDT", 1)
	c.UpdateTick("BTCUSDT", 1)
	c.UpdateTick("BTCUSDT", -1)
	frame := c.Compute("BTCUSDT", mkBar(1, 100, 101, 99, 100, 10))
	if frame.TickImbalance <= 0 {
		t.Errorf("TickImbalance = %v, want positive after two buys and one sell", frame.TickImbalance)
	}
}

func TestComputer_RSI_AllGainsIsHundred(t *testing.T) {
	c := NewComputer(3, 3, 2, 4, 3, 10, time.Minute, 50)
	var frame model.FeatureFrame
	for i := int64(0); i < 5; i++ {
		frame = c.Compute("BTCUSDT", mkBar(i, 100, 101, 99, 100+float64(i)*2, 10))
	}
	if frame.RSI != 100 {
		t.Errorf("RSI = %v, want 100 on an unbroken uptrend", frame.RSI)
	}
}

func TestComputer_ATR_ZeroOnFirstBar(t *testing.T) {
	c := NewComputer(3, 3, 2, 4, 3, 10, time.Minute, 50)
	frame := c.Compute("BTCUSDT", mkBar(1, 100, 101, 99, 100, 10))
	if frame.ATR != 0 {
		t.Errorf("ATR = %v, want 0 with no prior bar to derive true range from", frame.ATR)
	}
}
