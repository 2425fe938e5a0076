// Package promptgen builds LLM system prompts that teach the SAG grammar
// and runs a parse-validate-retry loop over an llm.Client.
package promptgen

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sentrius/sag/internal/llm"
	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/minifier"
	"github.com/sentrius/sag/pkg/sag/parser"
	"github.com/sentrius/sag/pkg/sag/schema"
)

const grammarEBNF = `message     ::= header NEWLINE body EOF

header      ::= 'H' version msgId src dst timestamp correlation? ttl?
version     ::= 'v' INT
msgId       ::= 'id=' IDENT
src         ::= 'src=' IDENT
dst         ::= 'dst=' IDENT
timestamp   ::= 'ts=' INT
correlation ::= 'corr=' (IDENT | '-')
ttl         ::= 'ttl=' INT

body        ::= statement (';' statement)* ';'?

statement   ::= actionStmt | queryStmt | assertStmt | controlStmt
              | eventStmt | errorStmt | foldStmt | recallStmt
              | subscribeStmt | unsubscribeStmt | knowledgeStmt

actionStmt  ::= 'DO' verbCall policyClause? priorityClause? reasonClause?
verbCall    ::= IDENT '(' argList? ')'
argList     ::= arg (',' arg)*
arg         ::= value | namedArg
namedArg    ::= IDENT '=' value

reasonClause    ::= 'BECAUSE' (STRING | expr)
queryStmt       ::= 'Q' expr ('WHERE' expr)?
assertStmt      ::= 'A' path '=' value
controlStmt     ::= 'IF' expr 'THEN' statement ('ELSE' statement)?
eventStmt       ::= 'EVT' IDENT '(' argList? ')'
errorStmt       ::= 'ERR' IDENT STRING?
foldStmt        ::= 'FOLD' IDENT STRING ('STATE' object)?
recallStmt      ::= 'RECALL' IDENT
subscribeStmt   ::= 'SUB' topicPattern ('WHERE' expr)?
unsubscribeStmt ::= 'UNSUB' topicPattern
knowledgeStmt   ::= 'KNOW' topicPattern '=' value 'v' INT

policyClause   ::= 'P:' IDENT (':' expr)?
priorityClause ::= 'PRIO=' PRIORITY

expr  ::= expr '||' expr
        | expr '&&' expr
        | expr ('==' | '!=' | '>' | '<' | '>=' | '<=') expr
        | expr ('+' | '-') expr
        | expr ('*' | '/') expr
        | primary

primary ::= value | '(' expr ')'

value ::= STRING | INT | FLOAT | BOOL | 'null' | path | list | object
path  ::= IDENT ('.' IDENT)*
list  ::= '[' (value (',' value)*)? ']'
object ::= '{' (member (',' member)*)? '}'
member ::= STRING ':' value
`

const quickReference = `Statement quick reference (one per line, separate with ';'):

  Header:     H v 1 id=<id> src=<source> dst=<destination> ts=<timestamp>
  Action:     DO verb(arg1, arg2, name=value)
  Query:      Q expression WHERE constraint
  Assert:     A path = value
  Control:    IF expr THEN statement ELSE statement
  Event:      EVT eventName(arg1, arg2)
  Error:      ERR errorCode "error message"
  Fold:       FOLD foldId "summary" STATE {"key": "value"}
  Recall:     RECALL foldId
  Subscribe:  SUB topic.pattern WHERE expr
  Knowledge:  KNOW topic.path = value v 1

Optional action clauses: P:policyName  PRIO=HIGH  BECAUSE "reason"
Priority values: LOW, NORMAL, HIGH, CRITICAL
Values: "string", 42, 3.14, true, false, null, [list], {"object": "value"}, dotted.path
`

const defaultExamples = `Example SAG messages:

1) Simple action:
   H v 1 id=msg1 src=agent dst=server ts=1700000000
   DO deploy("myapp", env="production")

2) Multi-statement message:
   H v 1 id=msg2 src=planner dst=executor ts=1700000001
   A status = "ready"; DO launch("service-a"); EVT taskStarted("deployment")

3) Query with constraint:
   H v 1 id=msg3 src=monitor dst=db ts=1700000002
   Q server.health WHERE server.region == "us-east"

4) Action with priority and reason:
   H v 1 id=msg4 src=ops dst=infra ts=1700000003
   DO scaleUp("web-tier", count=3) PRIO=HIGH BECAUSE "traffic spike detected"

5) Assert a fact:
   H v 1 id=msg5 src=sensor dst=controller ts=1700000004
   A temperature.reading = 72.5

6) Error response:
   H v 1 id=msg6 src=server dst=client ts=1700000005
   ERR TIMEOUT "Request exceeded 30s limit"

7) Fold for context compression:
   H v 1 id=msg7 src=agent dst=memory ts=1700000006
   FOLD conv-chunk-1 "Discussed deployment plan for Q3" STATE {"decision": "approved"}
`

// Message is one turn of conversation fed to the LLM, the standard
// {"role": ..., "content": ...} chat-completion shape.
type Message struct {
	Role    string
	Content string
}

// Builder assembles a system prompt from optional sections, using a
// chainable builder pattern (mirrors PromptBuilder).
type Builder struct {
	preamble              string
	hasPreamble           bool
	suffix                string
	hasSuffix             bool
	schemaRegistry        *schema.Registry
	customExamples        []string
	includeGrammar        bool
	includeQuickReference bool
	includeDefaultExamples bool
}

func NewBuilder() *Builder {
	return &Builder{
		includeGrammar:         true,
		includeQuickReference:  true,
		includeDefaultExamples: true,
	}
}

func (b *Builder) SetPreamble(text string) *Builder {
	b.preamble, b.hasPreamble = text, true
	return b
}

func (b *Builder) SetSuffix(text string) *Builder {
	b.suffix, b.hasSuffix = text, true
	return b
}

func (b *Builder) SetSchemaRegistry(registry *schema.Registry) *Builder {
	b.schemaRegistry = registry
	return b
}

func (b *Builder) AddExample(text string) *Builder {
	b.customExamples = append(b.customExamples, text)
	return b
}

func (b *Builder) IncludeGrammar(include bool) *Builder {
	b.includeGrammar = include
	return b
}

func (b *Builder) IncludeQuickReference(include bool) *Builder {
	b.includeQuickReference = include
	return b
}

func (b *Builder) IncludeDefaultExamples(include bool) *Builder {
	b.includeDefaultExamples = include
	return b
}

func GrammarEBNF() string      { return grammarEBNF }
func QuickReference() string   { return quickReference }
func DefaultExamples() string  { return defaultExamples }

// Build assembles the full system prompt from configured sections.
func (b *Builder) Build() string {
	var sections []string

	if b.hasPreamble {
		sections = append(sections, b.preamble)
	}
	if b.includeGrammar {
		sections = append(sections, "SAG Grammar (EBNF):\n"+grammarEBNF)
	}
	if b.includeQuickReference {
		sections = append(sections, quickReference)
	}
	if b.schemaRegistry != nil {
		if docs := renderSchemaDocs(b.schemaRegistry); docs != "" {
			sections = append(sections, docs)
		}
	}
	if b.includeDefaultExamples {
		sections = append(sections, defaultExamples)
	}
	sections = append(sections, b.customExamples...)
	if b.hasSuffix {
		sections = append(sections, b.suffix)
	}
	return strings.Join(sections, "\n\n")
}

func renderSchemaDocs(registry *schema.Registry) string {
	verbs := registry.RegisteredVerbs()
	if len(verbs) == 0 {
		return ""
	}
	sort.Strings(verbs)

	lines := []string{"Available verbs and their signatures:", ""}
	for _, verb := range verbs {
		vs, _ := registry.GetSchema(verb)
		lines = append(lines, "  DO "+renderVerbSignature(vs))
	}
	return strings.Join(lines, "\n")
}

func renderVerbSignature(vs schema.VerbSchema) string {
	var parts []string
	for _, spec := range vs.PositionalArgs {
		parts = append(parts, renderArgSpec(spec))
	}
	namedNames := make([]string, 0, len(vs.NamedArgs))
	for name := range vs.NamedArgs {
		namedNames = append(namedNames, name)
	}
	sort.Strings(namedNames)
	for _, name := range namedNames {
		parts = append(parts, renderArgSpec(vs.NamedArgs[name]))
	}
	return fmt.Sprintf("%s(%s)", vs.VerbName, strings.Join(parts, ", "))
}

func renderArgSpec(spec schema.ArgumentSpec) string {
	var b strings.Builder
	if spec.Required {
		fmt.Fprintf(&b, "%s: %s", spec.Name, spec.Type)
	} else {
		fmt.Fprintf(&b, "%s?: %s", spec.Name, spec.Type)
	}

	var constraints []string
	if spec.AllowedValues != nil {
		vals := make([]string, len(spec.AllowedValues))
		for i, v := range spec.AllowedValues {
			vals[i] = minifier.MinifyValue(v)
		}
		constraints = append(constraints, "["+strings.Join(vals, "|")+"]")
	}
	if spec.HasPattern {
		constraints = append(constraints, fmt.Sprintf("pattern=%q", spec.Pattern))
	}
	if spec.HasMin {
		constraints = append(constraints, fmt.Sprintf(">=%v", spec.MinValue))
	}
	if spec.HasMax {
		constraints = append(constraints, fmt.Sprintf("<=%v", spec.MaxValue))
	}
	if len(constraints) > 0 {
		b.WriteString(" " + strings.Join(constraints, " "))
	}
	return b.String()
}

// Result is the outcome of one Generate call.
type Result struct {
	Message  ast.Message
	HasMessage bool
	RawText  string
	Success  bool
	Attempts int
	Errors   []string
}

// Generator drives a parse-validate-retry loop around an llm.Client.
type Generator struct {
	client         llm.Client
	builder        *Builder
	schemaRegistry *schema.Registry
	maxRetries     int
	validateSchema bool
	cachedPrompt   string
	hasCached      bool
}

// Option configures a Generator.
type Option func(*Generator)

func WithMaxRetries(n int) Option {
	return func(g *Generator) { g.maxRetries = n }
}

func WithSchemaValidation(validate bool) Option {
	return func(g *Generator) { g.validateSchema = validate }
}

func NewGenerator(client llm.Client, builder *Builder, schemaRegistry *schema.Registry, opts ...Option) *Generator {
	if builder == nil {
		builder = NewBuilder()
	}
	if schemaRegistry != nil {
		builder.SetSchemaRegistry(schemaRegistry)
	}
	g := &Generator{
		client:         client,
		builder:        builder,
		schemaRegistry: schemaRegistry,
		maxRetries:     2,
		validateSchema: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SystemPrompt lazily builds and caches the system prompt.
func (g *Generator) SystemPrompt() string {
	if !g.hasCached {
		g.cachedPrompt = g.builder.Build()
		g.hasCached = true
	}
	return g.cachedPrompt
}

// InvalidatePromptCache forces the system prompt to be rebuilt next call.
func (g *Generator) InvalidatePromptCache() {
	g.hasCached = false
}

// Generate calls the LLM, parses its response as SAG, validates any Action
// statements against the schema registry (if configured), and retries with
// corrective feedback appended to the conversation on failure.
func (g *Generator) Generate(ctx context.Context, model string, messages []Message) Result {
	prompt := g.SystemPrompt()
	conversation := make([]Message, len(messages))
	copy(conversation, messages)

	var errs []string
	var rawText string
	totalAttempts := 1 + g.maxRetries

	for attempt := 0; attempt < totalAttempts; attempt++ {
		var err error
		rawText, err = g.client.Complete(ctx, model, renderConversation(prompt, conversation))
		if err != nil {
			errs = append(errs, "completion error: "+err.Error())
			continue
		}

		parsed, parseErr := parser.Parse(rawText)
		if parseErr != nil {
			msg := "parse error: " + parseErr.Error()
			errs = append(errs, msg)
			if attempt < totalAttempts-1 {
				conversation = append(conversation,
					Message{Role: "assistant", Content: rawText},
					Message{Role: "user", Content: "Your response was not valid SAG. " + msg + "\nPlease fix the syntax and try again."},
				)
			}
			continue
		}

		if g.validateSchema && g.schemaRegistry != nil {
			if schemaErr := validateMessageSchema(parsed, g.schemaRegistry); schemaErr != "" {
				errs = append(errs, schemaErr)
				if attempt < totalAttempts-1 {
					conversation = append(conversation,
						Message{Role: "assistant", Content: rawText},
						Message{Role: "user", Content: "SAG parsed OK but schema validation failed: " + schemaErr + "\nPlease fix the arguments and try again."},
					)
				}
				continue
			}
		}

		return Result{
			Message:    parsed,
			HasMessage: true,
			RawText:    rawText,
			Success:    true,
			Attempts:   attempt + 1,
			Errors:     errs,
		}
	}

	return Result{RawText: rawText, Success: false, Attempts: totalAttempts, Errors: errs}
}

func renderConversation(systemPrompt string, messages []Message) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	for _, m := range messages {
		fmt.Fprintf(&b, "\n\n[%s]: %s", m.Role, m.Content)
	}
	return b.String()
}

func validateMessageSchema(message ast.Message, registry *schema.Registry) string {
	validator := schema.NewValidator(registry)
	for _, stmt := range message.Statements {
		action, ok := stmt.(ast.Action)
		if !ok {
			continue
		}
		if err := validator.Validate(action); err != nil {
			return fmt.Sprintf("schema error on verb '%s': %s", action.Verb, err.Message)
		}
	}
	return ""
}
