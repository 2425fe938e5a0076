// Package fold implements the archive-with-exact-fidelity compression
// engine.
package fold

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/minifier"
	"github.com/sentrius/sag/pkg/sag/sagerr"
)

// Engine archives message sequences under a generated fold-id, guaranteeing
// unfold returns exactly what was folded.
type Engine struct {
	store map[string][]ast.Message
}

func New() *Engine {
	return &Engine{store: map[string][]ast.Message{}}
}

// Fold archives messages under a fresh id and returns the Fold statement
// a caller can emit on-wire. Messages are copied, so later mutation of the
// caller's slice doesn't affect the archive.
func (e *Engine) Fold(messages []ast.Message, summary string, state []ast.ObjectMember) ast.Fold {
	id := newFoldID()
	archived := make([]ast.Message, len(messages))
	copy(archived, messages)
	e.store[id] = archived

	return ast.Fold{
		FoldID:   id,
		Summary:  summary,
		State:    state,
		HasState: state != nil,
	}
}

// Unfold returns the archived message sequence for foldID, or
// UNKNOWN_FOLD_ID if no such fold exists.
func (e *Engine) Unfold(foldID string) ([]ast.Message, error) {
	messages, ok := e.store[foldID]
	if !ok {
		return nil, sagerr.New(sagerr.UnknownFoldID, "no such fold: "+foldID)
	}
	out := make([]ast.Message, len(messages))
	copy(out, messages)
	return out, nil
}

func (e *Engine) HasFold(foldID string) bool {
	_, ok := e.store[foldID]
	return ok
}

func (e *Engine) Remove(foldID string) {
	delete(e.store, foldID)
}

func (e *Engine) Clear() {
	e.store = map[string][]ast.Message{}
}

func (e *Engine) FoldCount() int {
	return len(e.store)
}

// DetectPressure reports whether messages' total minified token count has
// reached threshold (default callers use 0.7) of budget, signaling the
// caller should fold before appending more history.
func (e *Engine) DetectPressure(messages []ast.Message, budget int, threshold float64) bool {
	total := 0
	for _, msg := range messages {
		total += minifier.CountTokens(minifier.Minify(msg))
	}
	return float64(total) >= float64(budget)*threshold
}

func newFoldID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// ArchiveSnapshot pairs one fold-id with its archived messages, the unit
// ExportState/ImportState move in and out of an Engine.
type ArchiveSnapshot struct {
	FoldID   string
	Messages []ast.Message
}

// ExportState snapshots the entire archive as an in-memory checkpoint. Fold
// ids are preserved so a Recall statement issued before export still
// resolves after ImportState into a fresh Engine.
func (e *Engine) ExportState() []ArchiveSnapshot {
	out := make([]ArchiveSnapshot, 0, len(e.store))
	for id, messages := range e.store {
		copied := make([]ast.Message, len(messages))
		copy(copied, messages)
		out = append(out, ArchiveSnapshot{FoldID: id, Messages: copied})
	}
	return out
}

// ImportState replaces the archive with snapshots, restoring exactly the
// fold-id -> messages mapping captured by a prior ExportState.
func (e *Engine) ImportState(snapshots []ArchiveSnapshot) {
	e.store = make(map[string][]ast.Message, len(snapshots))
	for _, s := range snapshots {
		archived := make([]ast.Message, len(s.Messages))
		copy(archived, s.Messages)
		e.store[s.FoldID] = archived
	}
}
