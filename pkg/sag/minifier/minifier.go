// Package minifier renders a parsed ast.Message back to SAG wire text and
// compares its size against an equivalent JSON encoding. parse(minify(m))
// must equal m for every valid message.
package minifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/lexer"
)

// Minify renders a Message as SAG wire text.
func Minify(msg ast.Message) string {
	var b strings.Builder
	minifyHeader(&b, msg.Header)
	b.WriteByte('\n')
	for i, stmt := range msg.Statements {
		b.WriteString(MinifyStatement(stmt))
		if i < len(msg.Statements)-1 {
			b.WriteByte(';')
		}
	}
	return b.String()
}

func minifyHeader(b *strings.Builder, h ast.Header) {
	fmt.Fprintf(b, "H v %d id=%s src=%s dst=%s ts=%d", h.Version, h.MessageID, h.Source, h.Destination, h.Timestamp)
	if h.HasCorr {
		fmt.Fprintf(b, " corr=%s", h.Correlation)
	}
	if h.HasTTL {
		fmt.Fprintf(b, " ttl=%d", h.TTL)
	}
}

// MinifyStatement renders one statement as SAG wire text.
func MinifyStatement(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case ast.Action:
		return minifyAction(s)
	case ast.Query:
		return minifyQuery(s)
	case ast.Assert:
		return minifyAssert(s)
	case ast.Control:
		return minifyControl(s)
	case ast.Event:
		return minifyEvent(s)
	case ast.Error:
		return minifyError(s)
	case ast.Fold:
		return minifyFold(s)
	case ast.Recall:
		return fmt.Sprintf("RECALL %s", s.FoldID)
	case ast.Subscribe:
		return minifySubscribe(s)
	case ast.Unsubscribe:
		return fmt.Sprintf("UNSUB %s", s.Pattern)
	case ast.Knowledge:
		return minifyKnowledge(s)
	}
	return ""
}

func minifyArgs(b *strings.Builder, args []ast.Value, named []ast.NamedArg) {
	for i, a := range args {
		b.WriteString(MinifyValue(a))
		if i < len(args)-1 || len(named) > 0 {
			b.WriteByte(',')
		}
	}
	for i, n := range named {
		fmt.Fprintf(b, "%s=%s", n.Name, MinifyValue(n.Value))
		if i < len(named)-1 {
			b.WriteByte(',')
		}
	}
}

func minifyAction(a ast.Action) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DO %s(", a.Verb)
	minifyArgs(&b, a.Args, a.NamedArgs)
	b.WriteByte(')')

	if a.HasPolicy {
		fmt.Fprintf(&b, " P:%s", a.Policy)
		if a.HasPolicyExpr {
			fmt.Fprintf(&b, ":%s", a.PolicyExpr)
		}
	}
	if a.HasPriority {
		fmt.Fprintf(&b, " PRIO=%s", a.Priority)
	}
	if a.HasReason {
		b.WriteString(" BECAUSE ")
		if a.ReasonIsExpr {
			b.WriteString(a.Reason)
		} else {
			b.WriteString("\"" + lexer.Escape(a.Reason) + "\"")
		}
	}
	return b.String()
}

func minifyQuery(q ast.Query) string {
	if q.HasConstraint {
		return fmt.Sprintf("Q %s WHERE %s", q.Expression, q.Constraint)
	}
	return fmt.Sprintf("Q %s", q.Expression)
}

func minifyAssert(a ast.Assert) string {
	return fmt.Sprintf("A %s = %s", a.Path, MinifyValue(a.Value))
}

func minifyControl(c ast.Control) string {
	result := fmt.Sprintf("IF %s THEN %s", c.Condition, MinifyStatement(c.Then))
	if c.HasElse {
		result += " ELSE " + MinifyStatement(c.Else)
	}
	return result
}

func minifyEvent(e ast.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EVT %s(", e.Name)
	minifyArgs(&b, e.Args, e.NamedArgs)
	b.WriteByte(')')
	return b.String()
}

func minifyError(e ast.Error) string {
	result := fmt.Sprintf("ERR %s", e.Code)
	if e.HasMessage {
		result += " \"" + lexer.Escape(e.Message) + "\""
	}
	return result
}

func minifyFold(f ast.Fold) string {
	result := fmt.Sprintf("FOLD %s ", f.FoldID) + "\"" + lexer.Escape(f.Summary) + "\""
	if f.HasState {
		result += " STATE " + MinifyValue(ast.Object(f.State))
	}
	return result
}

func minifySubscribe(s ast.Subscribe) string {
	result := fmt.Sprintf("SUB %s", s.Pattern)
	if s.HasFilter {
		result += " WHERE " + s.Filter
	}
	return result
}

func minifyKnowledge(k ast.Knowledge) string {
	return fmt.Sprintf("KNOW %s = %s v %d", k.Topic, MinifyValue(k.Value), k.Version)
}

// MinifyValue renders a Value as SAG wire syntax.
func MinifyValue(v ast.Value) string {
	switch v.Kind {
	case ast.KindNull:
		return "null"
	case ast.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ast.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case ast.KindFloat:
		s := strconv.FormatFloat(v.Flt, 'f', -1, 64)
		if !strings.Contains(s, ".") && !math.IsInf(v.Flt, 0) && !math.IsNaN(v.Flt) {
			s += ".0"
		}
		return s
	case ast.KindString:
		return "\"" + lexer.Escape(v.Str) + "\""
	case ast.KindPath:
		return v.Str
	case ast.KindList:
		items := make([]string, len(v.List))
		for i, item := range v.List {
			items[i] = MinifyValue(item)
		}
		return "[" + strings.Join(items, ",") + "]"
	case ast.KindObject:
		members := make([]string, len(v.Obj))
		for i, m := range v.Obj {
			members[i] = "\"" + lexer.Escape(m.Key) + "\":" + MinifyValue(m.Value)
		}
		return "{" + strings.Join(members, ",") + "}"
	}
	return "null"
}

// TokenComparison reports the size delta between a minified SAG message and
// its JSON-equivalent encoding.
type TokenComparison struct {
	SAGLength    int
	JSONLength   int
	SAGTokens    int
	JSONTokens   int
	TokensSaved  int
	PercentSaved float64
}

func (c TokenComparison) String() string {
	return fmt.Sprintf("SAG: %d chars (%d tokens) vs JSON: %d chars (%d tokens) - Saved: %d tokens (%.1f%%)",
		c.SAGLength, c.SAGTokens, c.JSONLength, c.JSONTokens, c.TokensSaved, c.PercentSaved)
}

// CountTokens approximates a model's tokenizer with the common
// four-chars-per-token heuristic.
func CountTokens(text string) int {
	return int(math.Ceil(float64(len([]rune(text))) / 4.0))
}

// jsonHeader and jsonStatement mirror Message's shape for the JSON-
// equivalent size comparison; they exist only for that comparison, not as a
// wire format SAG components ever emit or parse.
type jsonHeader struct {
	Version     uint32 `json:"version"`
	MessageID   string `json:"messageId"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Timestamp   int64  `json:"timestamp"`
	Correlation string `json:"correlation,omitempty"`
	TTL         uint32 `json:"ttl,omitempty"`
}

type jsonStatement struct {
	Type      string          `json:"type"`
	Verb      string          `json:"verb,omitempty"`
	Args      []ast.Value     `json:"args,omitempty"`
	NamedArgs []ast.NamedArg  `json:"namedArgs,omitempty"`
}

type jsonMessage struct {
	Header     jsonHeader      `json:"header"`
	Statements []jsonStatement `json:"statements"`
}

func toJSONEquivalent(msg ast.Message) (string, error) {
	jm := jsonMessage{
		Header: jsonHeader{
			Version:     msg.Header.Version,
			MessageID:   msg.Header.MessageID,
			Source:      msg.Header.Source,
			Destination: msg.Header.Destination,
			Timestamp:   msg.Header.Timestamp,
		},
	}
	if msg.Header.HasCorr {
		jm.Header.Correlation = msg.Header.Correlation
	}
	if msg.Header.HasTTL {
		jm.Header.TTL = msg.Header.TTL
	}
	for _, stmt := range msg.Statements {
		js := jsonStatement{Type: fmt.Sprintf("%T", stmt)}
		if a, ok := stmt.(ast.Action); ok {
			js.Verb = a.Verb
			js.Args = a.Args
			js.NamedArgs = a.NamedArgs
		}
		jm.Statements = append(jm.Statements, js)
	}
	b, err := json.Marshal(jm)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare minifies msg and measures it against its JSON-equivalent
// encoding.
func Compare(msg ast.Message) (TokenComparison, error) {
	sag := Minify(msg)
	js, err := toJSONEquivalent(msg)
	if err != nil {
		return TokenComparison{}, err
	}
	sagTokens := CountTokens(sag)
	jsonTokens := CountTokens(js)
	saved := jsonTokens - sagTokens
	percent := 0.0
	if jsonTokens > 0 {
		percent = float64(saved) * 100.0 / float64(jsonTokens)
	}
	return TokenComparison{
		SAGLength:    len([]rune(sag)),
		JSONLength:   len([]rune(js)),
		SAGTokens:    sagTokens,
		JSONTokens:   jsonTokens,
		TokensSaved:  saved,
		PercentSaved: percent,
	}, nil
}
