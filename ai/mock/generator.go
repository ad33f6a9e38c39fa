package mock

import (
	"context"
	"strings"
	"sync"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, systemPrompt, prompt string) (string, error)

	mu         sync.Mutex
	callCount  int
	lastSystem string
	lastPrompt string
}

// NewMockGenerator creates a mock generator that echoes the last prompt line.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the prompts and returns a canned reply.
func (m *MockGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastSystem = systemPrompt
	m.lastPrompt = prompt
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, systemPrompt, prompt)
	}

	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	return "mock answer: " + strings.TrimSpace(lines[len(lines)-1]), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompts returns the system and user prompts of the most recent call.
func (m *MockGenerator) LastPrompts() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSystem, m.lastPrompt
}

// Reset clears the call count, recorded prompts and custom functions.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastSystem = ""
	m.lastPrompt = ""
	m.GenerateFunc = nil
}
