// Package scorer implements SignalScorer: an external-process model adapter
// that turns a feature vector into a reversal/continuation confidence.
//
// Per the no-safe-mode-fallback requirement for live trading, this adapter
// never substitutes a heuristic confidence when the model process is
// unavailable — Score returns ErrUnavailable instead, and the caller must
// treat that as "no signal," not as a neutral confidence.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable is returned by Score when the scoring process cannot
// produce a prediction. Callers must refuse to produce a signal rather than
// fall back to a neutral confidence.
var ErrUnavailable = errors.New("scorer: model unavailable, refusing to score")

// MetricsSink receives scorer telemetry. internal/metrics implements this.
type MetricsSink interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLModelAgeSet(float64)
	MLPredictionScoresObserve(float64)
	MLTimeoutsInc()
}

type cacheEntry struct {
	score     float32
	timestamp time.Time
}

// Scorer is the concrete SignalScorer adapter: it shells out to a Python
// ONNX inference script per call, health-checks the model path at startup,
// and caches recent predictions by feature-vector hash.
type Scorer struct {
	mu         sync.Mutex
	available  bool
	modelPath  string
	pythonPath string
	scriptPath string
	timeout    time.Duration
	metrics    MetricsSink

	cache    map[string]cacheEntry
	cacheTTL time.Duration
}

type predictionRequest struct {
	Features []float32 `json:"features"`
}

type predictionResponse struct {
	Probabilities []float64 `json:"probabilities"`
	Prediction    int       `json:"prediction"`
	Error         string    `json:"error,omitempty"`
}

// New loads the model at path and prepares the inference subprocess. It
// never fails solely because the model is missing or Python can't be
// found — instead it returns a Scorer with available=false, so Score can
// surface ErrUnavailable uniformly rather than the caller special-casing
// construction failures.
func New(path string, timeout time.Duration, metrics MetricsSink) (*Scorer, error) {
	s := &Scorer{
		modelPath: path,
		timeout:   timeout,
		metrics:   metrics,
		cache:     make(map[string]cacheEntry, 1024),
		cacheTTL:  30 * time.Second,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("model_path", path).Msg("scorer model not found, adapter will refuse to score")
		return s, nil
	}

	pythonPath, err := findPython()
	if err != nil {
		log.Warn().Err(err).Msg("no python interpreter found, adapter will refuse to score")
		return s, nil
	}
	s.pythonPath = pythonPath

	scriptPath := filepath.Join(filepath.Dir(path), "onnx_inference.py")
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		if err := writeInferenceScript(scriptPath); err != nil {
			log.Warn().Err(err).Msg("could not materialize inference script, adapter will refuse to score")
			return s, nil
		}
	}
	s.scriptPath = scriptPath
	s.available = true

	if info, err := os.Stat(path); err == nil && s.metrics != nil {
		s.metrics.MLModelAgeSet(time.Since(info.ModTime()).Seconds())
	}

	return s, nil
}

// Available reports whether the scorer can currently produce predictions.
func (s *Scorer) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Score returns the model's confidence that the input features indicate a
// reversal (the convention used throughout this package: index 1 of the
// two-class probability output). It returns ErrUnavailable, never a
// fallback value, when the model process cannot be used.
func (s *Scorer) Score(ctx context.Context, features []float32) (float64, error) {
	s.mu.Lock()
	available := s.available
	s.mu.Unlock()
	if !available {
		return 0, ErrUnavailable
	}

	if cached, ok := s.fromCache(features); ok {
		return cached, nil
	}

	start := time.Now()
	probs, err := s.invoke(ctx, features)
	if s.metrics != nil {
		s.metrics.MLLatencyObserve(time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.MLFailuresInc()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			if s.metrics != nil {
				s.metrics.MLTimeoutsInc()
			}
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(probs) < 2 {
		return 0, fmt.Errorf("%w: expected 2 probabilities, got %d", ErrUnavailable, len(probs))
	}

	if s.metrics != nil {
		s.metrics.MLPredictionsInc()
		s.metrics.MLPredictionScoresObserve(probs[1])
	}
	s.putInCache(features, float32(probs[1]))
	return probs[1], nil
}

func (s *Scorer) invoke(ctx context.Context, features []float32) ([]float64, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("scorer: empty feature vector")
	}
	for i, f := range features {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("scorer: feature %d is not finite", i)
		}
	}

	req := predictionRequest{Features: features}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("scorer: marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, s.pythonPath, s.scriptPath, s.modelPath)
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Error().Err(err).Str("stderr", stderr.String()).Msg("scorer subprocess failed")
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("scorer subprocess: %w", err)
	}

	var resp predictionResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("scorer: parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("scorer: model error: %s", resp.Error)
	}
	for i, p := range resp.Probabilities {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("scorer: probability %d out of range: %f", i, p)
		}
	}
	return resp.Probabilities, nil
}

func (s *Scorer) cacheKey(features []float32) string {
	var h uint64
	for _, f := range features {
		h = h*31 + uint64(math.Float32bits(f))
	}
	return fmt.Sprintf("%x", h)
}

func (s *Scorer) fromCache(features []float32) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[s.cacheKey(features)]
	if !ok || time.Since(entry.timestamp) > s.cacheTTL {
		return 0, false
	}
	return float64(entry.score), true
}

func (s *Scorer) putInCache(features []float32, score float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) >= 4096 {
		for k := range s.cache {
			delete(s.cache, k)
			break
		}
	}
	s.cache[s.cacheKey(features)] = cacheEntry{score: score, timestamp: time.Now()}
}

func findPython() (string, error) {
	candidates := []string{"python3", "python"}
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no python3/python executable on PATH")
}

func writeInferenceScript(scriptPath string) error {
	script := `#!/usr/bin/env python3
import sys
import json

try:
    import onnxruntime as ort
    import numpy as np
except ImportError:
    print(json.dumps({"error": "onnxruntime not installed"}))
    sys.exit(1)


def main():
    if len(sys.argv) != 2:
        print(json.dumps({"error": "usage: onnx_inference.py <model_path>"}))
        sys.exit(1)

    model_path = sys.argv[1]
    try:
        request = json.load(sys.stdin)
        features = np.array([request["features"]], dtype=np.float32)

        session = ort.InferenceSession(model_path)
        input_name = session.get_inputs()[0].name
        outputs = session.run(None, {input_name: features})

        if len(outputs) == 2:
            prediction = int(outputs[0][0])
            probabilities = outputs[1][0].tolist()
        else:
            output = outputs[0]
            prob_positive = float(output[0])
            probabilities = [1.0 - prob_positive, prob_positive]
            prediction = int(prob_positive > 0.5)

        print(json.dumps({"probabilities": probabilities, "prediction": prediction}))
    except Exception as e:
        print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`
	return os.WriteFile(scriptPath, []byte(script), 0o755)
}
