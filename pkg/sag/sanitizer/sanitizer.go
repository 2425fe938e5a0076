// Package sanitizer implements the four-layer validation firewall —
// grammar parse, routing guard, schema validate, guardrail check.
// AgentRegistry maps an agent-id to its allowed destinations, an
// allow-list routing model rather than a flat known-agents set.
package sanitizer

import (
	"strings"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/context"
	"github.com/sentrius/sag/pkg/sag/expr"
	"github.com/sentrius/sag/pkg/sag/parser"
	"github.com/sentrius/sag/pkg/sag/sagerr"
	"github.com/sentrius/sag/pkg/sag/schema"
)

// ErrorType classifies which layer produced a ValidationError.
type ErrorType string

const (
	ErrorTypeParse     ErrorType = "PARSE"
	ErrorTypeRouting   ErrorType = "ROUTING"
	ErrorTypeSchema    ErrorType = "SCHEMA"
	ErrorTypeGuardrail ErrorType = "GUARDRAIL"
)

// ValidationError is one firewall-layer failure.
type ValidationError struct {
	Type    ErrorType
	Code    sagerr.Code
	Message string
}

// Result aggregates a sanitize pass's outcome. Message is populated
// whenever layer 1 (grammar parse) succeeds, even if later layers fail.
type Result struct {
	Valid   bool
	Message ast.Message
	Errors  []ValidationError
}

// AgentRegistry maps a source agent to the destinations it's allowed to
// address, the allow-list routing guard.
type AgentRegistry struct {
	allowedDestinations map[string]map[string]bool
}

func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{allowedDestinations: map[string]map[string]bool{}}
}

// Register adds agentID to the registry with the given allowed
// destinations. Calling it again replaces the allow-list.
func (r *AgentRegistry) Register(agentID string, allowedDestinations ...string) {
	set := make(map[string]bool, len(allowedDestinations))
	for _, d := range allowedDestinations {
		set[d] = true
	}
	r.allowedDestinations[agentID] = set
}

// AllowDestination adds dest to src's allow-list without replacing it,
// registering src first if needed.
func (r *AgentRegistry) AllowDestination(src, dest string) {
	if r.allowedDestinations[src] == nil {
		r.allowedDestinations[src] = map[string]bool{}
	}
	r.allowedDestinations[src][dest] = true
}

func (r *AgentRegistry) IsKnown(agentID string) bool {
	_, ok := r.allowedDestinations[agentID]
	return ok
}

// IsAllowed reports whether src may address dest: src must be registered and
// dest must be in src's allow-list; dest itself need not be registered.
func (r *AgentRegistry) IsAllowed(src, dest string) bool {
	allowed, ok := r.allowedDestinations[src]
	if !ok {
		return false
	}
	return allowed[dest]
}

func (r *AgentRegistry) Unregister(agentID string) {
	delete(r.allowedDestinations, agentID)
}

func (r *AgentRegistry) Clear() {
	r.allowedDestinations = map[string]map[string]bool{}
}

// Sanitizer runs the four-layer firewall over raw wire text or an
// already-built Message (for outgoing messages, via SanitizeOutput).
type Sanitizer struct {
	schemaRegistry *schema.Registry
	schemaValidator *schema.Validator
	agentRegistry  *AgentRegistry
	defaultContext context.Context
	strict         bool
}

// Option configures a Sanitizer, following this codebase's functional
// options convention.
type Option func(*Sanitizer)

func WithDefaultContext(ctx context.Context) Option {
	return func(s *Sanitizer) { s.defaultContext = ctx }
}

// WithStrict controls whether any layer 2-4 error fails the whole result
// (true, the default) or is merely collected alongside a Valid=true
// result for layer-1-clean messages.
func WithStrict(strict bool) Option {
	return func(s *Sanitizer) { s.strict = strict }
}

func New(schemaRegistry *schema.Registry, agentRegistry *AgentRegistry, opts ...Option) *Sanitizer {
	s := &Sanitizer{
		schemaRegistry:  schemaRegistry,
		schemaValidator: schema.NewValidator(schemaRegistry),
		agentRegistry:   agentRegistry,
		defaultContext:  context.NewMapContext(),
		strict:          true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sanitize runs the four layers over raw wire text, in order. A parse
// failure ends the run at layer 1; in strict mode, so does the first of
// layers 2-4 that reports errors.
func (s *Sanitizer) Sanitize(rawInput string) Result {
	msg, err := parser.Parse(rawInput)
	if err != nil {
		code := sagerr.ParseError
		if se, ok := err.(*sagerr.Error); ok {
			code = se.Code
		}
		return Result{
			Valid:  false,
			Errors: []ValidationError{{Type: ErrorTypeParse, Code: code, Message: err.Error()}},
		}
	}

	var errors []ValidationError

	routingErrors := s.validateRouting(msg)
	errors = append(errors, routingErrors...)
	if s.strict && len(routingErrors) > 0 {
		return Result{Valid: false, Message: msg, Errors: errors}
	}

	schemaErrors := s.validateSchemas(msg)
	errors = append(errors, schemaErrors...)
	if s.strict && len(schemaErrors) > 0 {
		return Result{Valid: false, Message: msg, Errors: errors}
	}

	guardrailErrors := s.validateGuardrails(msg)
	errors = append(errors, guardrailErrors...)
	if s.strict && len(guardrailErrors) > 0 {
		return Result{Valid: false, Message: msg, Errors: errors}
	}

	if len(errors) > 0 && s.strict {
		return Result{Valid: false, Message: msg, Errors: errors}
	}
	return Result{Valid: true, Message: msg, Errors: errors}
}

// SanitizeOutput runs layers 2-4 over an already-built Message, for
// agents validating their own outgoing traffic before minifying it.
func (s *Sanitizer) SanitizeOutput(msg ast.Message) Result {
	var errors []ValidationError
	errors = append(errors, s.validateRouting(msg)...)
	errors = append(errors, s.validateSchemas(msg)...)
	errors = append(errors, s.validateGuardrails(msg)...)

	if len(errors) > 0 && s.strict {
		return Result{Valid: false, Message: msg, Errors: errors}
	}
	return Result{Valid: true, Message: msg, Errors: errors}
}

func (s *Sanitizer) validateRouting(msg ast.Message) []ValidationError {
	var errors []ValidationError
	h := msg.Header

	if !s.agentRegistry.IsKnown(h.Source) {
		errors = append(errors, ValidationError{ErrorTypeRouting, sagerr.RoutingDenied, "unknown source agent: " + h.Source})
		return errors
	}
	if !s.agentRegistry.IsKnown(h.Destination) {
		errors = append(errors, ValidationError{ErrorTypeRouting, sagerr.RoutingDenied, "unknown destination agent: " + h.Destination})
		return errors
	}
	if !s.agentRegistry.IsAllowed(h.Source, h.Destination) {
		errors = append(errors, ValidationError{ErrorTypeRouting, sagerr.RoutingDenied, "destination " + h.Destination + " not in " + h.Source + "'s allow-list"})
	}
	return errors
}

// validateSchemas runs the schema validator over every Action and Event in
// msg, each checked against its verb/name-keyed schema in the registry.
func (s *Sanitizer) validateSchemas(msg ast.Message) []ValidationError {
	var errors []ValidationError
	for _, stmt := range msg.Statements {
		switch st := stmt.(type) {
		case ast.Action:
			if err := s.schemaValidator.Validate(st); err != nil {
				errors = append(errors, ValidationError{ErrorTypeSchema, err.Code, err.Message})
			}
		case ast.Event:
			asAction := ast.Action{Verb: st.Name, Args: st.Args, NamedArgs: st.NamedArgs}
			if err := s.schemaValidator.Validate(asAction); err != nil {
				errors = append(errors, ValidationError{ErrorTypeSchema, err.Code, err.Message})
			}
		}
	}
	return errors
}

func (s *Sanitizer) validateGuardrails(msg ast.Message) []ValidationError {
	var errors []ValidationError
	for _, stmt := range msg.Statements {
		action, ok := stmt.(ast.Action)
		if !ok {
			continue
		}
		if err := validateGuardrail(action, s.defaultContext); err != nil {
			errors = append(errors, ValidationError{ErrorTypeGuardrail, err.Code, err.Message})
		}
	}
	return errors
}

// validateGuardrail checks one action's BECAUSE reason, when it's an
// expression, against ctx (the firewall's fourth layer).
func validateGuardrail(action ast.Action, ctx context.Context) *sagerr.Error {
	if !action.HasReason || strings.TrimSpace(action.Reason) == "" {
		return nil
	}
	if !action.ReasonIsExpr {
		return nil
	}

	result, err := expr.Evaluate(action.Reason, ctx)
	if err != nil {
		if se, ok := err.(*sagerr.Error); ok {
			return sagerr.New(sagerr.InvalidExpression, "failed to evaluate precondition: "+se.Message)
		}
		return sagerr.New(sagerr.InvalidExpression, "failed to evaluate precondition: "+err.Error())
	}

	if result.Kind == ast.KindBool {
		if !result.Bool {
			return sagerr.New(sagerr.PreconditionFailed, "precondition not met: "+action.Reason)
		}
		return nil
	}
	if result.Kind != ast.KindNull {
		return nil
	}
	return sagerr.New(sagerr.PreconditionFailed, "expression evaluated to null")
}
