// Package memory buffers an agent's recent SAG message history, evicting
// the oldest messages once their combined minified token count exceeds a
// budget.
package memory

import (
	"sync"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/minifier"
)

type Memory struct {
	stream      []ast.Message
	tokenBudget int
	mu          sync.RWMutex
}

func NewMemory(tokenBudget int) *Memory {
	return &Memory{tokenBudget: tokenBudget}
}

// GetAll returns a copy of all buffered messages, oldest first.
func (m *Memory) GetAll() []ast.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ast.Message, len(m.stream))
	copy(out, m.stream)
	return out
}

// Store appends msg, then evicts the oldest messages until the buffer's
// total minified token count fits within the budget.
func (m *Memory) Store(msg ast.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stream = append(m.stream, msg)
	for m.totalTokens() > m.tokenBudget && len(m.stream) > 1 {
		m.stream = m.stream[1:]
	}
}

func (m *Memory) totalTokens() int {
	total := 0
	for _, msg := range m.stream {
		total += minifier.CountTokens(minifier.Minify(msg))
	}
	return total
}

// TokenCount returns the buffer's current total minified token count.
func (m *Memory) TokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalTokens()
}
