package llm

import (
	"context"
	"sync"

	"ideaforge/ports"
)

// MockModelPort is a scripted ModelPort for testing. Each call consumes
// the next scripted step; once the script runs out the last step repeats.
type MockModelPort struct {
	Name  string
	Steps []MockStep

	mu    sync.Mutex
	calls int
	// Prompts records every prompt seen, for assertions.
	Prompts []string
}

// MockStep is one scripted response or error.
type MockStep struct {
	Response string
	Err      error
}

func (m *MockModelPort) Provider() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}

// Calls returns how many times Invoke ran.
func (m *MockModelPort) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockModelPort) Invoke(ctx context.Context, req ports.ModelRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	step := MockStep{}
	if len(m.Steps) > 0 {
		i := m.calls
		if i >= len(m.Steps) {
			i = len(m.Steps) - 1
		}
		step = m.Steps[i]
	}
	m.calls++
	m.Prompts = append(m.Prompts, req.Prompt)
	m.mu.Unlock()

	if step.Err != nil {
		return "", step.Err
	}
	return step.Response, nil
}

var _ ports.ModelPort = (*MockModelPort)(nil)
