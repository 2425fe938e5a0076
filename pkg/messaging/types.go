package messaging

import (
	"time"
)

// Message represents a communication between agents. Content carries a
// minified SAG wire message (as produced by minifier.Minify) rather than an
// arbitrary payload, so the broker stays agnostic to the AST it's routing.
type Message struct {
	From      string    // Agent ID of sender
	To        []string  // Agent IDs of recipients (empty means broadcast)
	Content   string    // Minified SAG wire text
	Timestamp time.Time // When the message was sent
}

// Sender can send messages
type Sender interface {
	Send(msg Message) error
}

// Receiver can receive messages
type Receiver interface {
	Receive() <-chan Message
}

// Agent combines sending and receiving capabilities
type Agent interface {
	Sender
	Receiver
}

// Broker handles message routing between agents
type Broker interface {
	// Publish sends a message to specified recipients
	Publish(msg Message) error
	// Subscribe registers an agent to receive messages
	Subscribe(agentID string, ch chan<- Message) error
	// Unsubscribe removes an agent's subscription
	Unsubscribe(agentID string) error
}
