package batch

import (
	"context"
	"math/rand"
	"sync"
)

// Verdict is the analyzer's judgement of one response.
type Verdict string

const (
	VerdictGood  Verdict = "good"
	VerdictBad   Verdict = "bad"
	VerdictError Verdict = "error"
)

// Analyzer judges a prompt/response pair and returns a verdict with a confidence in [0,1].
type Analyzer interface {
	Analyze(ctx context.Context, prompt, response string) (Verdict, float64)
}

// MockAnalyzer assigns random verdicts: 70% good, 25% bad and 5% good with low confidence.
// It stands in for real content analysis during development.
type MockAnalyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockAnalyzer creates a MockAnalyzer with a deterministic seed.
func NewMockAnalyzer(seed int64) *MockAnalyzer {
	return &MockAnalyzer{rng: rand.New(rand.NewSource(seed))}
}

func (m *MockAnalyzer) uniform(lo, hi float64) float64 {
	return lo + m.rng.Float64()*(hi-lo)
}

// Analyze implements Analyzer.
func (m *MockAnalyzer) Analyze(_ context.Context, _, _ string) (Verdict, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roll := m.rng.Float64()
	switch {
	case roll < 0.70:
		return VerdictGood, m.uniform(0.70, 0.99)
	case roll < 0.95:
		return VerdictBad, m.uniform(0.60, 0.95)
	default:
		return VerdictGood, m.uniform(0.40, 0.60)
	}
}
