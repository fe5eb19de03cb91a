package bitunix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeframeToInterval_KnownTimeframes(t *testing.T) {
	cases := map[string]KlineInterval{
		"1m":  Interval1m,
		"5m":  Interval5m,
		"15m": Interval15m,
		"1h":  Interval1h,
		"4h":  Interval4h,
		"1d":  Interval1d,
	}
	for tf, want := range cases {
		got, err := timeframeToInterval(tf)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestTimeframeToInterval_UnsupportedTimeframeErrors(t *testing.T) {
	_, err := timeframeToInterval("3m")
	assert.Error(t, err)
}

func TestKlineInterval_Duration(t *testing.T) {
	assert.Equal(t, time.Minute, Interval1m.duration())
	assert.Equal(t, 24*time.Hour, Interval1d.duration())
}

func TestNewMarketDataSource_WrapsClient(t *testing.T) {
	client := NewREST("key", "secret", "https://example.invalid", time.Second)
	src := NewMarketDataSource(client)
	assert.NotNil(t, src)
}
