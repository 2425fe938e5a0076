// Package knowledge implements the per-agent versioned fact store and
// topic-subscription propagation engine. The subscriber model here is a
// per-subscriber-id shape (pattern + optional filter + per-topic delivery
// cursor), not a per-peer version-vector shape; see DESIGN.md.
package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/context"
	"github.com/sentrius/sag/pkg/sag/expr"
	"github.com/sentrius/sag/pkg/sag/fold"
)

// TopicMatches reports whether pattern matches topic: `*` matches exactly
// one segment, `**` matches one or more segments (greedy, anchored only at
// the position it occupies, so `a.**.d` is valid), and literal segments
// compare case-sensitively.
func TopicMatches(pattern, topic string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(topic, "."))
}

func matchSegments(pattern, topic []string) bool {
	if len(pattern) == 0 {
		return len(topic) == 0
	}
	head := pattern[0]
	if head == "**" {
		if len(topic) == 0 {
			return false
		}
		for consume := len(topic); consume >= 1; consume-- {
			if matchSegments(pattern[1:], topic[consume:]) {
				return true
			}
		}
		return false
	}
	if len(topic) == 0 {
		return false
	}
	if head == "*" || head == topic[0] {
		return matchSegments(pattern[1:], topic[1:])
	}
	return false
}

// Fact is one stored (value, version) pair for a topic.
type Fact struct {
	Value   ast.Value
	Version uint64
}

// Subscription tracks one subscriber's interest and delivery progress.
type Subscription struct {
	SubscriberID string
	Pattern      string
	Filter       string
	HasFilter    bool
	cursor       map[string]uint64
}

// Engine is one agent's fact store, subscriber table, and per-subscriber
// cursors. Not safe for concurrent use — each agent owns and drives its
// own Engine single-threaded.
type Engine struct {
	agentID     string
	facts       map[string]Fact
	subscribers map[string]*Subscription
	budget      int
	hasBudget   bool
	foldEngine  *fold.Engine
}

// Option configures an Engine.
type Option func(*Engine)

// WithBudget sets a soft bound on total stored facts; exceeding it
// triggers auto-fold on the next AssertFact, provided WithFoldEngine is
// also set.
func WithBudget(budget int) Option {
	return func(e *Engine) {
		e.budget = budget
		e.hasBudget = true
	}
}

// WithFoldEngine couples this Engine to a fold.Engine so budget overflow
// can archive the oldest-by-version facts.
func WithFoldEngine(fe *fold.Engine) Option {
	return func(e *Engine) { e.foldEngine = fe }
}

func New(agentID string, opts ...Option) *Engine {
	e := &Engine{
		agentID:     agentID,
		facts:       map[string]Fact{},
		subscribers: map[string]*Subscription{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AssertFact stores value at topic with the next version for that topic
// and returns the resulting Knowledge statement. If storing it pushed the
// fact count over budget, the oldest-by-version facts are archived via the
// coupled fold.Engine and the returned *ast.Fold should be emitted
// alongside the Knowledge statement; nil if no fold was triggered.
func (e *Engine) AssertFact(topic string, value ast.Value) (ast.Knowledge, *ast.Fold) {
	next := e.facts[topic].Version + 1
	e.facts[topic] = Fact{Value: value, Version: next}
	stmt := ast.Knowledge{Topic: topic, Value: value, Version: next}

	var foldStmt *ast.Fold
	if e.hasBudget && e.foldEngine != nil && len(e.facts) > e.budget {
		foldStmt = e.autoFold()
	}
	return stmt, foldStmt
}

func (e *Engine) autoFold() *ast.Fold {
	excess := len(e.facts) - e.budget
	if excess <= 0 {
		return nil
	}
	type topicVersion struct {
		topic   string
		version uint64
	}
	ordered := make([]topicVersion, 0, len(e.facts))
	for topic, f := range e.facts {
		ordered = append(ordered, topicVersion{topic, f.Version})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].version < ordered[j].version })

	toFold := ordered[:excess]
	members := make([]ast.ObjectMember, 0, len(toFold))
	for _, tv := range toFold {
		members = append(members, ast.ObjectMember{Key: tv.topic, Value: e.facts[tv.topic].Value})
	}
	summary := fmt.Sprintf("folded %d knowledge facts", len(toFold))
	foldStmt := e.foldEngine.Fold(nil, summary, members)

	for _, tv := range toFold {
		delete(e.facts, tv.topic)
	}
	return &foldStmt
}

func (e *Engine) GetFact(topic string) (Fact, bool) {
	f, ok := e.facts[topic]
	return f, ok
}

// QueryFacts returns every stored fact whose topic matches pattern.
func (e *Engine) QueryFacts(pattern string) map[string]Fact {
	out := map[string]Fact{}
	for topic, f := range e.facts {
		if TopicMatches(pattern, topic) {
			out[topic] = f
		}
	}
	return out
}

func (e *Engine) DeleteFact(topic string) bool {
	if _, ok := e.facts[topic]; ok {
		delete(e.facts, topic)
		return true
	}
	return false
}

func (e *Engine) FactCount() int {
	return len(e.facts)
}

// AddSubscriber registers subID's interest in pattern (with an optional
// filter expression), initializing delivery cursors to zero for every
// currently-matching topic so the next ComputeDelta sees them as new.
func (e *Engine) AddSubscriber(subID, pattern, filter string, hasFilter bool) {
	sub := &Subscription{
		SubscriberID: subID,
		Pattern:      pattern,
		Filter:       filter,
		HasFilter:    hasFilter,
		cursor:       map[string]uint64{},
	}
	for topic := range e.facts {
		if TopicMatches(pattern, topic) {
			sub.cursor[topic] = 0
		}
	}
	e.subscribers[subID] = sub
}

func (e *Engine) RemoveSubscriber(subID string) {
	delete(e.subscribers, subID)
}

// ComputeDelta returns every fact new to subID since its last delivery
// cursor, restricted to topics matching its subscription pattern and
// passing its filter (if any), ordered topic-lexicographic then
// version-ascending. It does not advance the cursor; call MarkDelivered
// once the caller has actually sent the result.
func (e *Engine) ComputeDelta(subID string) ([]ast.Knowledge, error) {
	sub, ok := e.subscribers[subID]
	if !ok {
		return nil, nil
	}

	var delta []ast.Knowledge
	for topic, fact := range e.facts {
		if !TopicMatches(sub.Pattern, topic) {
			continue
		}
		if fact.Version <= sub.cursor[topic] {
			continue
		}
		if sub.HasFilter {
			pass, err := e.evaluateFilter(sub.Filter, topic, fact.Value)
			if err != nil {
				return nil, err
			}
			if !pass {
				continue
			}
		}
		delta = append(delta, ast.Knowledge{Topic: topic, Value: fact.Value, Version: fact.Version})
	}

	sort.Slice(delta, func(i, j int) bool {
		if delta[i].Topic != delta[j].Topic {
			return delta[i].Topic < delta[j].Topic
		}
		return delta[i].Version < delta[j].Version
	})
	return delta, nil
}

func (e *Engine) evaluateFilter(filter, topic string, value ast.Value) (bool, error) {
	ctx := context.NewMapContext()
	ctx.Set(topic, value)
	result, err := expr.Evaluate(filter, ctx)
	if err != nil {
		return false, err
	}
	if result.Kind == ast.KindNull {
		return true, nil
	}
	return result.Kind == ast.KindBool && result.Bool, nil
}

// MarkDelivered advances subID's per-topic cursors to the versions in
// statements, the commit step after a caller has actually sent a delta.
func (e *Engine) MarkDelivered(subID string, statements []ast.Knowledge) {
	sub, ok := e.subscribers[subID]
	if !ok {
		return
	}
	for _, s := range statements {
		if s.Version > sub.cursor[s.Topic] {
			sub.cursor[s.Topic] = s.Version
		}
	}
}

// ApplyIncoming accepts each statement whose version strictly exceeds the
// currently stored version for its topic (last-writer-by-version-wins;
// ties reject the incoming statement), returning the subset actually
// applied.
func (e *Engine) ApplyIncoming(statements []ast.Knowledge, fromAgent string) []ast.Knowledge {
	var applied []ast.Knowledge
	for _, s := range statements {
		existing, ok := e.facts[s.Topic]
		if !ok || s.Version > existing.Version {
			e.facts[s.Topic] = Fact{Value: s.Value, Version: s.Version}
			applied = append(applied, s)
		}
	}
	return applied
}

func (e *Engine) Clear() {
	e.facts = map[string]Fact{}
	e.subscribers = map[string]*Subscription{}
}

// ExportState snapshots every stored fact as a Knowledge statement, ordered
// topic-lexicographic for deterministic output — a full state dump
// expressed as in-memory SAG statements rather than a JSON file.
func (e *Engine) ExportState() []ast.Knowledge {
	out := make([]ast.Knowledge, 0, len(e.facts))
	for topic, f := range e.facts {
		out = append(out, ast.Knowledge{Topic: topic, Value: f.Value, Version: f.Version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// ImportState replaces the fact store with statements, restoring exactly the
// (topic, value, version) triples given rather than merging via
// ApplyIncoming's last-writer-wins rule. Subscriber cursors are left
// untouched; call AddSubscriber again if a subscriber needs to see the
// restored facts as new.
func (e *Engine) ImportState(statements []ast.Knowledge) {
	e.facts = make(map[string]Fact, len(statements))
	for _, s := range statements {
		e.facts[s.Topic] = Fact{Value: s.Value, Version: s.Version}
	}
}
