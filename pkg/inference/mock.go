package inference

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-pointdex/pkg/frame"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	// If nil, returns a fixed "mock" result at full confidence.
	ClassifyFunc func(ctx context.Context, img *frame.NormalizedImage) (*Result, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Bytes  int
	Time   time.Time
}

// NewMock creates a new mock classifier with sensible defaults.
func NewMock() *Mock {
	return &Mock{}
}

// NewSequenceMock returns a mock that replays results in order, repeating
// the last one once exhausted.
func NewSequenceMock(results ...Result) *Mock {
	var (
		mu sync.Mutex
		i  int
	)
	return &Mock{
		ClassifyFunc: func(ctx context.Context, img *frame.NormalizedImage) (*Result, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(results) == 0 {
				return &Result{}, nil
			}
			r := results[min(i, len(results)-1)]
			i++
			return &r, nil
		},
	}
}

// Classify calls ClassifyFunc and records the call.
func (m *Mock) Classify(ctx context.Context, img *frame.NormalizedImage) (*Result, error) {
	n := 0
	if img != nil {
		n = len(img.Data)
	}
	m.record("Classify", n)

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, img)
	}
	return &Result{Label: "mock", Confidence: 1}, nil
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Mock) record(method string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Bytes: n, Time: time.Now()})
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
