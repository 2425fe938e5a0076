package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sentrius/sag/pkg/agent"
	"github.com/sentrius/sag/pkg/messaging"
	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/minifier"
	"github.com/sentrius/sag/pkg/sag/sanitizer"
)

// runDemo wires two agents over an in-process broker: monitor asserts a
// knowledge fact, controller receives and applies it.
func runDemo() error {
	broker := messaging.NewBroker()
	defer broker.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	agents := sanitizer.NewAgentRegistry()
	agents.Register("monitor", "controller")
	agents.Register("controller", "monitor")

	monitor, err := agent.New(agent.WithAgentID("monitor"), agent.WithMessageBroker(broker), agent.WithAgentRegistry(agents))
	if err != nil {
		return fmt.Errorf("creating monitor: %w", err)
	}
	controller, err := agent.New(agent.WithAgentID("controller"), agent.WithMessageBroker(broker), agent.WithAgentRegistry(agents))
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}
	controller.StartMessageHandler(ctx)

	fact, _ := monitor.Knowledge().AssertFact("system.cpu", ast.Int(85))
	msg := ast.Message{
		Header: ast.Header{
			Version:     1,
			MessageID:   monitor.Correlation().GenerateMessageID(),
			Source:      "monitor",
			Destination: "controller",
			Timestamp:   time.Now().Unix(),
		},
		Statements: []ast.Statement{fact},
	}

	if err := monitor.Send(msg); err != nil {
		return fmt.Errorf("sending fact: %w", err)
	}

	time.Sleep(100 * time.Millisecond)

	value, ok := controller.Knowledge().GetFact("system.cpu")
	if !ok {
		return fmt.Errorf("controller never received system.cpu fact")
	}
	fmt.Printf("controller learned system.cpu = %s (version %d)\n", minifier.MinifyValue(value.Value), value.Version)
	return nil
}
