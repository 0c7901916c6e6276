package batch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/BaSui01/uniconnect/connector"
	"github.com/BaSui01/uniconnect/retry"
	"github.com/BaSui01/uniconnect/types"
)

// Sender delivers one prompt. *connector.Connector implements it.
type Sender interface {
	Send(ctx context.Context, prompt string) *connector.Response
}

var _ Sender = (*connector.Connector)(nil)

var mockReplies = []string{
	"I'd be happy to help with that!",
	"That's an interesting question. Let me explain...",
	"Here's what I think about that topic.",
	"I understand your query. The answer is...",
	"Great question! Based on my knowledge...",
}

// MockSender answers every prompt with a canned reply after a short random delay.
type MockSender struct {
	MinLatency time.Duration
	MaxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockSender creates a MockSender with 100-300ms of simulated latency.
func NewMockSender(seed int64) *MockSender {
	return &MockSender{
		MinLatency: 100 * time.Millisecond,
		MaxLatency: 300 * time.Millisecond,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Send implements Sender.
func (m *MockSender) Send(ctx context.Context, prompt string) *connector.Response {
	m.mu.Lock()
	latency := m.MinLatency
	if span := m.MaxLatency - m.MinLatency; span > 0 {
		latency += time.Duration(m.rng.Int63n(int64(span)))
	}
	reply := mockReplies[m.rng.Intn(len(mockReplies))]
	m.mu.Unlock()

	if err := retry.Sleep(ctx, latency); err != nil {
		return &connector.Response{
			ErrorKind: types.KindUnknown,
			Error:     fmt.Sprintf("unexpected error: %v", err),
		}
	}

	return &connector.Response{
		Success:     true,
		Content:     fmt.Sprintf("%s (Re: %s...)", reply, truncate(prompt, 30)),
		RawResponse: map[string]any{"mock": true},
		ErrorKind:   types.KindSuccess,
		StatusCode:  200,
		LatencyMS:   latency.Milliseconds(),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
