package llm

import (
	"context"
	"sync"
)

// Mock is a scripted Generator for tests and offline runs.
//
// Responses cycle in order. A configured error is returned on every call.
// A configured func takes precedence over both.
type Mock struct {
	mu        sync.Mutex
	responses []string
	index     int
	err       error
	fn        func(Request) (string, error)

	// Calls records every request, in order.
	Calls []Request
}

// NewMock creates a mock that always answers response.
func NewMock(response string) *Mock {
	return &Mock{responses: []string{response}}
}

// WithResponses sets the responses returned in order, cycling at the end.
func (m *Mock) WithResponses(responses ...string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.index = 0
	return m
}

// WithError makes every call fail with err.
func (m *Mock) WithError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFunc answers every call with fn.
func (m *Mock) WithFunc(fn func(Request) (string, error)) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

// Generate implements Generator.
func (m *Mock) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.fn != nil {
		return m.fn(req)
	}
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	out := m.responses[m.index%len(m.responses)]
	m.index++
	return out, nil
}

// CallCount returns the number of calls made.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil.
func (m *Mock) LastCall() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	last := m.Calls[len(m.Calls)-1]
	return &last
}

// Reset clears recorded calls and rewinds the response cycle.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.index = 0
}
