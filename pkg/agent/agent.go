// Package agent wires the SAG core engines, an LLM client, and a message
// broker into one runtime unit.
package agent

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sentrius/sag/internal/llm"
	"github.com/sentrius/sag/pkg/messaging"
	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/correlation"
	"github.com/sentrius/sag/pkg/sag/knowledge"
	"github.com/sentrius/sag/pkg/sag/promptgen"
	"github.com/sentrius/sag/pkg/sag/sanitizer"
	"github.com/sentrius/sag/pkg/sag/schema"

	"github.com/sentrius/sag/pkg/memory"
)

var logger = log.New(os.Stderr, "agent: ", log.LstdFlags)

// ErrNoBroker is returned by New when no message broker was supplied.
var ErrNoBroker = errors.New("agent: no message broker configured")

// ErrNoLLMClient is returned by GenerateAndSend when the Agent was built
// without an LLM client, so it has no generator to run.
var ErrNoLLMClient = errors.New("agent: no LLM client configured")

// Agent is one runtime participant: its own correlation and knowledge
// engines, a sanitizer firewall over outgoing traffic, a bounded message
// history, and (optionally) an LLM-backed generator for producing new SAG
// messages.
type Agent struct {
	id          string
	model       string
	correlation *correlation.Engine
	knowledge   *knowledge.Engine
	sanitizer   *sanitizer.Sanitizer
	memory      *memory.Memory
	generator   *promptgen.Generator
	broker      messaging.Broker
	messageChan chan messaging.Message
}

// Params configures an Agent under construction.
type Params struct {
	AgentID         string
	Model           string
	Broker          messaging.Broker
	Client          llm.Client
	SchemaRegistry  *schema.Registry
	AgentRegistry   *sanitizer.AgentRegistry
	KnowledgeBudget int
	HasBudget       bool
	MemoryTokens    int
}

// Option configures Params, following this codebase's functional-options
// convention.
type Option func(*Params)

func WithAgentID(id string) Option           { return func(p *Params) { p.AgentID = id } }
func WithModel(model string) Option          { return func(p *Params) { p.Model = model } }
func WithMessageBroker(b messaging.Broker) Option {
	return func(p *Params) { p.Broker = b }
}
func WithLLMClient(c llm.Client) Option { return func(p *Params) { p.Client = c } }
func WithSchemaRegistry(r *schema.Registry) Option {
	return func(p *Params) { p.SchemaRegistry = r }
}
func WithAgentRegistry(r *sanitizer.AgentRegistry) Option {
	return func(p *Params) { p.AgentRegistry = r }
}
func WithKnowledgeBudget(budget int) Option {
	return func(p *Params) { p.KnowledgeBudget, p.HasBudget = budget, true }
}
func WithMemoryTokenBudget(tokens int) Option {
	return func(p *Params) { p.MemoryTokens = tokens }
}

func defaultParams() *Params {
	return &Params{
		AgentID:      "agent-" + uuid.New().String(),
		Model:        "gpt-4o-mini",
		MemoryTokens: 4000,
	}
}

// New builds an Agent and subscribes it to its message broker.
func New(opts ...Option) (*Agent, error) {
	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}
	if params.Broker == nil {
		return nil, ErrNoBroker
	}
	if params.SchemaRegistry == nil {
		params.SchemaRegistry = schema.NewRegistry()
	}
	if params.AgentRegistry == nil {
		params.AgentRegistry = sanitizer.NewAgentRegistry()
	}

	var knowledgeOpts []knowledge.Option
	if params.HasBudget {
		knowledgeOpts = append(knowledgeOpts, knowledge.WithBudget(params.KnowledgeBudget))
	}

	a := &Agent{
		id:          params.AgentID,
		model:       params.Model,
		correlation: correlation.New(params.AgentID),
		knowledge:   knowledge.New(params.AgentID, knowledgeOpts...),
		sanitizer:   sanitizer.New(params.SchemaRegistry, params.AgentRegistry),
		memory:      memory.NewMemory(params.MemoryTokens),
		broker:      params.Broker,
		messageChan: make(chan messaging.Message, 100),
	}
	if params.Client != nil {
		a.generator = promptgen.NewGenerator(params.Client, promptgen.NewBuilder(), params.SchemaRegistry)
	}

	if err := a.broker.Subscribe(a.id, a.messageChan); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Agent) ID() string                        { return a.id }
func (a *Agent) Correlation() *correlation.Engine   { return a.correlation }
func (a *Agent) Knowledge() *knowledge.Engine       { return a.knowledge }
func (a *Agent) Memory() *memory.Memory             { return a.memory }

// Send sanitizes msg's routing/schema/guardrail layers, minifies it, and
// publishes it over the broker.
func (a *Agent) Send(msg ast.Message) error {
	result := a.sanitizer.SanitizeOutput(msg)
	if !result.Valid {
		return &sanitizerError{errors: result.Errors}
	}
	return a.broker.Publish(messaging.FromSAG(msg, time.Now()))
}

// GenerateAndSend runs the LLM generator (if configured) over conversation,
// and sends the resulting message if generation succeeded.
func (a *Agent) GenerateAndSend(ctx context.Context, conversation []promptgen.Message) (promptgen.Result, error) {
	if a.generator == nil {
		return promptgen.Result{}, ErrNoLLMClient
	}
	result := a.generator.Generate(ctx, a.model, conversation)
	if !result.Success {
		return result, nil
	}
	if err := a.Send(result.Message); err != nil {
		return result, err
	}
	return result, nil
}

// Receive exposes the agent's inbound message channel.
func (a *Agent) Receive() <-chan messaging.Message {
	return a.messageChan
}

// StartMessageHandler parses each inbound broker message as SAG, records it
// for correlation and history, and applies any Knowledge statements it
// carries. Runs until ctx is done.
func (a *Agent) StartMessageHandler(ctx context.Context) {
	go func() {
		for {
			select {
			case raw := <-a.messageChan:
				msg, err := messaging.ToSAG(raw)
				if err != nil {
					logger.Printf("agent %s: failed to parse message from %s: %v", a.id, raw.From, err)
					continue
				}
				a.correlation.RecordIncoming(msg)
				a.memory.Store(msg)

				var incoming []ast.Knowledge
				for _, stmt := range msg.Statements {
					if k, ok := stmt.(ast.Knowledge); ok {
						incoming = append(incoming, k)
					}
				}
				if len(incoming) > 0 {
					a.knowledge.ApplyIncoming(incoming, msg.Header.Source)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

type sanitizerError struct {
	errors []sanitizer.ValidationError
}

func (e *sanitizerError) Error() string {
	if len(e.errors) == 0 {
		return "sanitizer rejected message"
	}
	return string(e.errors[0].Type) + ": " + e.errors[0].Message
}
