package ast

// HeaderEqual compares two headers field-by-field.
func HeaderEqual(a, b Header) bool {
	return a.Version == b.Version &&
		a.MessageID == b.MessageID &&
		a.Source == b.Source &&
		a.Destination == b.Destination &&
		a.Timestamp == b.Timestamp &&
		a.HasCorr == b.HasCorr &&
		(!a.HasCorr || a.Correlation == b.Correlation) &&
		a.HasTTL == b.HasTTL &&
		(!a.HasTTL || a.TTL == b.TTL)
}

func namedArgsEqual(a, b []NamedArg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

func valueSliceEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// StatementEqual compares two statements by structural equality across all
// eleven variants. Used by the fold fidelity and parse/minify round-trip
// checks.
func StatementEqual(a, b Statement) bool {
	switch av := a.(type) {
	case Action:
		bv, ok := b.(Action)
		if !ok {
			return false
		}
		return av.Verb == bv.Verb &&
			valueSliceEqual(av.Args, bv.Args) &&
			namedArgsEqual(av.NamedArgs, bv.NamedArgs) &&
			av.HasPolicy == bv.HasPolicy && (!av.HasPolicy || av.Policy == bv.Policy) &&
			av.HasPolicyExpr == bv.HasPolicyExpr && (!av.HasPolicyExpr || av.PolicyExpr == bv.PolicyExpr) &&
			av.HasPriority == bv.HasPriority && (!av.HasPriority || av.Priority == bv.Priority) &&
			av.HasReason == bv.HasReason && (!av.HasReason || (av.Reason == bv.Reason && av.ReasonIsExpr == bv.ReasonIsExpr))
	case Query:
		bv, ok := b.(Query)
		if !ok {
			return false
		}
		return av.Expression == bv.Expression &&
			av.HasConstraint == bv.HasConstraint &&
			(!av.HasConstraint || av.Constraint == bv.Constraint)
	case Assert:
		bv, ok := b.(Assert)
		if !ok {
			return false
		}
		return av.Path == bv.Path && av.Value.Equal(bv.Value)
	case Control:
		bv, ok := b.(Control)
		if !ok {
			return false
		}
		if av.Condition != bv.Condition || av.HasElse != bv.HasElse {
			return false
		}
		if !StatementEqual(av.Then, bv.Then) {
			return false
		}
		if av.HasElse && !StatementEqual(av.Else, bv.Else) {
			return false
		}
		return true
	case Event:
		bv, ok := b.(Event)
		if !ok {
			return false
		}
		return av.Name == bv.Name &&
			valueSliceEqual(av.Args, bv.Args) &&
			namedArgsEqual(av.NamedArgs, bv.NamedArgs)
	case Error:
		bv, ok := b.(Error)
		if !ok {
			return false
		}
		return av.Code == bv.Code && av.HasMessage == bv.HasMessage &&
			(!av.HasMessage || av.Message == bv.Message)
	case Fold:
		bv, ok := b.(Fold)
		if !ok {
			return false
		}
		if av.FoldID != bv.FoldID || av.Summary != bv.Summary || av.HasState != bv.HasState {
			return false
		}
		if av.HasState {
			return Object(av.State).Equal(Object(bv.State))
		}
		return true
	case Recall:
		bv, ok := b.(Recall)
		return ok && av.FoldID == bv.FoldID
	case Subscribe:
		bv, ok := b.(Subscribe)
		if !ok {
			return false
		}
		return av.Pattern == bv.Pattern && av.HasFilter == bv.HasFilter &&
			(!av.HasFilter || av.Filter == bv.Filter)
	case Unsubscribe:
		bv, ok := b.(Unsubscribe)
		return ok && av.Pattern == bv.Pattern
	case Knowledge:
		bv, ok := b.(Knowledge)
		if !ok {
			return false
		}
		return av.Topic == bv.Topic && av.Value.Equal(bv.Value) && av.Version == bv.Version
	}
	return false
}

// MessageEqual compares two messages for the round-trip/fold-fidelity
// properties: equal header, equal statement count, and each statement
// pairwise equal.
func MessageEqual(a, b Message) bool {
	if !HeaderEqual(a.Header, b.Header) {
		return false
	}
	if len(a.Statements) != len(b.Statements) {
		return false
	}
	for i := range a.Statements {
		if !StatementEqual(a.Statements[i], b.Statements[i]) {
			return false
		}
	}
	return true
}
