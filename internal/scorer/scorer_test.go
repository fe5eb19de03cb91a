package scorer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type noopMetrics struct {
	predictions int
	failures    int
}

func (m *noopMetrics) MLPredictionsInc()                 { m.predictions++ }
func (m *noopMetrics) MLFailuresInc()                     { m.failures++ }
func (m *noopMetrics) MLLatencyObserve(float64)           {}
func (m *noopMetrics) MLModelAgeSet(float64)              {}
func (m *noopMetrics) MLPredictionScoresObserve(float64)  {}
func (m *noopMetrics) MLTimeoutsInc()                     {}

func TestNew_MissingModelPath_IsUnavailable(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "does-not-exist.onnx"), time.Second, &noopMetrics{})
	assert.NoError(t, err)
	assert.False(t, s.Available())
}

func TestScore_Unavailable_ReturnsErrUnavailable(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "missing.onnx"), time.Second, &noopMetrics{})
	assert.NoError(t, err)

	confidence, err := s.Score(context.Background(), []float32{0.1, 0.2, 0.3})
	assert.ErrorIs(t, err, ErrUnavailable, "an unavailable model must refuse to score, never fall back to a neutral confidence")
	assert.Equal(t, 0.0, confidence)
}

func TestScore_Unavailable_NeverCallsMetricsSink(t *testing.T) {
	metrics := &noopMetrics{}
	s, err := New(filepath.Join(t.TempDir(), "missing.onnx"), time.Second, metrics)
	assert.NoError(t, err)

	_, _ = s.Score(context.Background(), []float32{0.1})
	assert.Equal(t, 0, metrics.predictions)
	assert.Equal(t, 0, metrics.failures, "refusing before invocation must not count as a scoring failure")
}

func TestErrUnavailable_IsStableSentinel(t *testing.T) {
	wrapped := errors.New("scorer: model unavailable, refusing to score")
	assert.Equal(t, ErrUnavailable.Error(), wrapped.Error())
}
