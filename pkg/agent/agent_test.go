package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentrius/sag/pkg/messaging"
	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/sanitizer"
)

func newTestAgents(t *testing.T) (*Agent, *Agent, messaging.Broker) {
	t.Helper()
	broker := messaging.NewBroker()
	t.Cleanup(func() { broker.Reset() })

	registry := sanitizer.NewAgentRegistry()
	registry.Register("planner", "executor")
	registry.Register("executor", "planner")

	planner, err := New(
		WithAgentID("planner"),
		WithMessageBroker(broker),
		WithAgentRegistry(registry),
	)
	require.NoError(t, err)

	executor, err := New(
		WithAgentID("executor"),
		WithMessageBroker(broker),
		WithAgentRegistry(registry),
	)
	require.NoError(t, err)

	return planner, executor, broker
}

func TestAgentSendRejectsUnknownDestination(t *testing.T) {
	planner, _, _ := newTestAgents(t)

	msg := ast.Message{
		Header: ast.Header{
			Version: 1, MessageID: "m1", Source: "planner", Destination: "ghost", Timestamp: 1700000000,
		},
		Statements: []ast.Statement{ast.Event{Name: "ping"}},
	}

	err := planner.Send(msg)
	require.Error(t, err)
}

func TestAgentSendAndReceiveAppliesKnowledge(t *testing.T) {
	planner, executor, _ := newTestAgents(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	executor.StartMessageHandler(ctx)

	msg := ast.Message{
		Header: ast.Header{
			Version: 1, MessageID: "m1", Source: "planner", Destination: "executor", Timestamp: 1700000000,
		},
		Statements: []ast.Statement{
			ast.Knowledge{Topic: "system.cpu", Value: ast.Int(85), Version: 1},
		},
	}

	require.NoError(t, planner.Send(msg))

	require.Eventually(t, func() bool {
		_, ok := executor.Knowledge().GetFact("system.cpu")
		return ok
	}, time.Second, 10*time.Millisecond)

	fact, ok := executor.Knowledge().GetFact("system.cpu")
	require.True(t, ok)
	require.Equal(t, uint64(1), fact.Version)
}
