package features

import (
	"time"

	"github.com/qtraxis/livetrader/internal/model"
)

// Computer implements FeatureComputer: it turns a bar-by-bar stream into
// FeatureFrames carrying ATR, RSI, Heikin-Ashi open/close, fast/slow EMA,
// and a volume simple moving average. It holds per-symbol state (the
// previous Heikin-Ashi bar and EMA values) and is not safe for concurrent
// use on the same symbol from multiple goroutines, matching the
// single-writer-per-symbol bar ordering invariant.
type Computer struct {
	atrPeriod     int
	rsiPeriod     int
	emaFastPeriod int
	emaSlowPeriod int
	volSMAPeriod  int
	tickWindow    int
	vwapWindow    time.Duration
	vwapSize      int

	state map[string]*symbolState
}

type symbolState struct {
	bars          []model.Bar
	haOpenPrev    float64
	haClosePrev   float64
	emaFast       float64
	emaSlow       float64
	haSeeded      bool
	emaSeeded     bool
	depthImb      float64
	ticks         *TickImb
	vwap          *VWAP
}

// NewComputer builds a Computer with the given indicator periods. tickWindow
// sizes the rolling trade-tick imbalance window per symbol; vwapWindow and
// vwapSize size each symbol's VWAP calculator.
func NewComputer(atrPeriod, rsiPeriod, emaFastPeriod, emaSlowPeriod, volSMAPeriod, tickWindow int, vwapWindow time.Duration, vwapSize int) *Computer {
	if tickWindow <= 0 {
		tickWindow = 50
	}
	return &Computer{
		atrPeriod:     atrPeriod,
		rsiPeriod:     rsiPeriod,
		emaFastPeriod: emaFastPeriod,
		emaSlowPeriod: emaSlowPeriod,
		volSMAPeriod:  volSMAPeriod,
		tickWindow:    tickWindow,
		vwapWindow:    vwapWindow,
		vwapSize:      vwapSize,
		state:         make(map[string]*symbolState),
	}
}

func (c *Computer) stateFor(symbol string) *symbolState {
	st, ok := c.state[symbol]
	if !ok {
		st = &symbolState{ticks: NewTickImb(c.tickWindow), vwap: NewVWAP(c.vwapWindow, c.vwapSize)}
		c.state[symbol] = st
	}
	return st
}

// UpdateDepth folds a fresh order book snapshot's bid/ask imbalance into
// symbol's running state, to be picked up by the next Compute call.
func (c *Computer) UpdateDepth(symbol string, bid, ask float64) {
	st := c.stateFor(symbol)
	st.depthImb = DepthImb(bid, ask)
}

// UpdateTick folds one signed trade tick (+1 buy, -1 sell) into symbol's
// rolling tick-imbalance window.
func (c *Computer) UpdateTick(symbol string, sign int8) {
	c.stateFor(symbol).ticks.Add(sign)
}

// readyPeriod is the longest warm-up window across all indicators; frames
// produced before this many bars have accumulated are marked not ready.
func (c *Computer) readyPeriod() int {
	longest := c.atrPeriod
	for _, p := range []int{c.rsiPeriod, c.emaSlowPeriod, c.volSMAPeriod} {
		if p > longest {
			longest = p
		}
	}
	return longest + 1
}

// Compute folds bar into symbol's running state and returns the resulting
// FeatureFrame. Bars must be supplied in ascending timestamp order per
// symbol.
func (c *Computer) Compute(symbol string, bar model.Bar) model.FeatureFrame {
	st := c.stateFor(symbol)
	st.bars = append(st.bars, bar)
	if len(st.bars) > c.readyPeriod()*4 {
		st.bars = st.bars[len(st.bars)-c.readyPeriod()*4:]
	}

	haOpen, haClose := c.heikinAshi(st, bar)
	atr := c.atr(st.bars, c.atrPeriod)
	rsi := c.rsi(st.bars, c.rsiPeriod)
	emaFast := c.ema(st.emaFast, bar.Close, c.emaFastPeriod, !st.emaSeeded)
	emaSlow := c.ema(st.emaSlow, bar.Close, c.emaSlowPeriod, !st.emaSeeded)
	st.emaFast, st.emaSlow = emaFast, emaSlow
	st.emaSeeded = true
	volSMA := c.sma(st.bars, c.volSMAPeriod, func(b model.Bar) float64 { return b.Volume })

	st.vwap.Add(bar.Close, bar.Volume)
	vwap, vwapStd := st.vwap.Calc()

	ready := len(st.bars) >= c.readyPeriod()

	return model.FeatureFrame{
		Bar:            bar,
		ATR:            atr,
		RSI:            rsi,
		HAOpen:         haOpen,
		HAClose:        haClose,
		EMAFast:        emaFast,
		EMASlow:        emaSlow,
		VolumeSMA:      volSMA,
		DepthImbalance: st.depthImb,
		TickImbalance:  st.ticks.Ratio(),
		VWAP:           vwap,
		VWAPStdDev:     vwapStd,
		Ready:          ready,
	}
}

func (c *Computer) heikinAshi(st *symbolState, bar model.Bar) (open, close float64) {
	close = (bar.Open + bar.High + bar.Low + bar.Close) / 4
	if !st.haSeeded {
		open = (bar.Open + bar.Close) / 2
		st.haSeeded = true
	} else {
		open = (st.haOpenPrev + st.haClosePrev) / 2
	}
	st.haOpenPrev, st.haClosePrev = open, close
	return open, close
}

func (c *Computer) atr(bars []model.Bar, period int) float64 {
	if len(bars) < 2 {
		return 0
	}
	n := period
	if n > len(bars)-1 {
		n = len(bars) - 1
	}
	if n <= 0 {
		return 0
	}
	var sum float64
	for i := len(bars) - n; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := maxOf3(
			bars[i].High-bars[i].Low,
			absF(bars[i].High-prevClose),
			absF(bars[i].Low-prevClose),
		)
		sum += tr
	}
	return sum / float64(n)
}

func (c *Computer) rsi(bars []model.Bar, period int) float64 {
	if len(bars) < 2 {
		return 50
	}
	n := period
	if n > len(bars)-1 {
		n = len(bars) - 1
	}
	if n <= 0 {
		return 50
	}
	var gain, loss float64
	for i := len(bars) - n; i < len(bars); i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta >= 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	if loss == 0 {
		return 100
	}
	rs := (gain / float64(n)) / (loss / float64(n))
	return 100 - (100 / (1 + rs))
}

func (c *Computer) ema(prev, value float64, period int, seed bool) float64 {
	if seed || prev == 0 {
		return value
	}
	k := 2.0 / (float64(period) + 1)
	return value*k + prev*(1-k)
}

func (c *Computer) sma(bars []model.Bar, period int, f func(model.Bar) float64) float64 {
	n := period
	if n > len(bars) {
		n = len(bars)
	}
	if n <= 0 {
		return 0
	}
	var sum float64
	for i := len(bars) - n; i < len(bars); i++ {
		sum += f(bars[i])
	}
	return sum / float64(n)
}

func maxOf3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
