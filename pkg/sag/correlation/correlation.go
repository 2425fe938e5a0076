// Package correlation tracks per-agent message-id generation and
// causality across a message collection.
package correlation

import (
	"fmt"
	"time"

	"github.com/sentrius/sag/pkg/sag/ast"
)

// Engine owns one agent's message-id counter and last-received slot. Each
// agent owns its own Engine; the counter is not shared across agents, so
// no atomics are needed here.
type Engine struct {
	agentID      string
	counter      int64
	lastReceived string
	hasLast      bool
}

func New(agentID string) *Engine {
	return &Engine{agentID: agentID}
}

// GenerateMessageID returns "<agent-id>-<n>" with n strictly increasing.
func (e *Engine) GenerateMessageID() string {
	e.counter++
	return fmt.Sprintf("%s-%d", e.agentID, e.counter)
}

// RecordIncoming remembers msg's id as the most recently received, for use
// as the correlation of the next CreateResponseHeader.
func (e *Engine) RecordIncoming(msg ast.Message) {
	if msg.Header.MessageID != "" {
		e.lastReceived = msg.Header.MessageID
		e.hasLast = true
	}
}

// CreateResponseHeader builds a fresh header correlated to the last
// recorded incoming message, if any.
func (e *Engine) CreateResponseHeader(source, destination string) ast.Header {
	h := ast.Header{
		Version:     1,
		MessageID:   e.GenerateMessageID(),
		Source:      source,
		Destination: destination,
		Timestamp:   time.Now().Unix(),
	}
	if e.hasLast {
		h.Correlation = e.lastReceived
		h.HasCorr = true
	}
	return h
}

// CreateHeaderWithCorrelation builds a fresh header explicitly correlated
// to correlationID.
func (e *Engine) CreateHeaderWithCorrelation(source, destination, correlationID string) ast.Header {
	return ast.Header{
		Version:     1,
		MessageID:   e.GenerateMessageID(),
		Source:      source,
		Destination: destination,
		Timestamp:   time.Now().Unix(),
		Correlation: correlationID,
		HasCorr:     correlationID != "",
	}
}

// CreateHeaderInResponseTo builds a fresh header correlated to
// inResponseTo's message id.
func (e *Engine) CreateHeaderInResponseTo(source, destination string, inResponseTo ast.Message) ast.Header {
	h := ast.Header{
		Version:     1,
		MessageID:   e.GenerateMessageID(),
		Source:      source,
		Destination: destination,
		Timestamp:   time.Now().Unix(),
	}
	if inResponseTo.Header.MessageID != "" {
		h.Correlation = inResponseTo.Header.MessageID
		h.HasCorr = true
	}
	return h
}

// Clear resets the last-received slot but not the id counter.
func (e *Engine) Clear() {
	e.lastReceived = ""
	e.hasLast = false
}

// TraceThread follows correlation links backward from startMessageID,
// returning the thread chronologically (oldest first). A visited set
// breaks cycles, which would indicate a bug upstream.
func TraceThread(messages []ast.Message, startMessageID string) []ast.Message {
	byID := make(map[string]ast.Message, len(messages))
	for _, m := range messages {
		if m.Header.MessageID != "" {
			byID[m.Header.MessageID] = m
		}
	}

	var thread []ast.Message
	visited := map[string]bool{}
	currentID := startMessageID

	for currentID != "" && !visited[currentID] {
		visited[currentID] = true
		msg, ok := byID[currentID]
		if !ok {
			break
		}
		thread = append(thread, msg)
		if msg.Header.HasCorr {
			currentID = msg.Header.Correlation
		} else {
			break
		}
	}

	for i, j := 0, len(thread)-1; i < j; i, j = i+1, j-1 {
		thread[i], thread[j] = thread[j], thread[i]
	}
	return thread
}

// FindResponses returns every message whose correlation equals messageID,
// in the input collection's order.
func FindResponses(messages []ast.Message, messageID string) []ast.Message {
	var responses []ast.Message
	for _, m := range messages {
		if m.Header.HasCorr && m.Header.Correlation == messageID {
			responses = append(responses, m)
		}
	}
	return responses
}

// BuildConversationTree maps each message-id to its direct children ids.
// Root nodes (present as keys but never appearing as someone's child) are
// those with no correlation.
func BuildConversationTree(messages []ast.Message) map[string][]string {
	tree := map[string][]string{}
	for _, m := range messages {
		if m.Header.MessageID == "" {
			continue
		}
		id := m.Header.MessageID
		if _, ok := tree[id]; !ok {
			tree[id] = nil
		}
		if m.Header.HasCorr {
			tree[m.Header.Correlation] = append(tree[m.Header.Correlation], id)
		}
	}
	return tree
}
