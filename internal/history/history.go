// Package history is a linear undo/redo log over immutable snapshots.
//
// State is a plain value advanced by Reduce; Log wraps it with a depth
// limit for callers that want methods instead of actions.
package history

// State is the past/present/future triple. Past is oldest first, Future is
// nearest-undone first.
type State[S any] struct {
	Past    []S
	Present S
	Future  []S
}

// Action is one of Commit, Undo, Redo or Reset.
type Action[S any] interface {
	apply(s State[S], limit int) State[S]
}

// Commit records Next as the new present and discards the future.
type Commit[S any] struct{ Next S }

// Undo steps back one snapshot. A no-op with an empty past.
type Undo[S any] struct{}

// Redo steps forward one snapshot. A no-op with an empty future.
type Redo[S any] struct{}

// Reset replaces the present without recording history, for the initial load.
type Reset[S any] struct{ Present S }

// Reduce applies a to s. limit caps the past depth; zero means unbounded.
// The input state is never modified.
func Reduce[S any](s State[S], a Action[S], limit int) State[S] {
	return a.apply(s, limit)
}

func (c Commit[S]) apply(s State[S], limit int) State[S] {
	past := appendCopy(s.Past, s.Present)
	if limit > 0 && len(past) > limit {
		past = past[len(past)-limit:]
	}
	return State[S]{Past: past, Present: c.Next}
}

func (Undo[S]) apply(s State[S], _ int) State[S] {
	if len(s.Past) == 0 {
		return s
	}
	last := len(s.Past) - 1
	future := make([]S, 0, len(s.Future)+1)
	future = append(future, s.Present)
	future = append(future, s.Future...)
	return State[S]{
		Past:    s.Past[:last:last],
		Present: s.Past[last],
		Future:  future,
	}
}

func (Redo[S]) apply(s State[S], limit int) State[S] {
	if len(s.Future) == 0 {
		return s
	}
	past := appendCopy(s.Past, s.Present)
	if limit > 0 && len(past) > limit {
		past = past[len(past)-limit:]
	}
	return State[S]{
		Past:    past,
		Present: s.Future[0],
		Future:  s.Future[1:len(s.Future):len(s.Future)],
	}
}

func (r Reset[S]) apply(_ State[S], _ int) State[S] {
	return State[S]{Present: r.Present}
}

func appendCopy[S any](xs []S, x S) []S {
	out := make([]S, 0, len(xs)+1)
	out = append(out, xs...)
	return append(out, x)
}

// Log holds a State and its depth limit. It is not safe for concurrent
// use; callers serialize access.
type Log[S any] struct {
	state State[S]
	limit int
}

// NewLog starts a log at present with no history.
func NewLog[S any](present S, limit int) *Log[S] {
	return &Log[S]{state: State[S]{Present: present}, limit: limit}
}

func (l *Log[S]) Present() S      { return l.state.Present }
func (l *Log[S]) State() State[S] { return l.state }
func (l *Log[S]) CanUndo() bool   { return len(l.state.Past) > 0 }
func (l *Log[S]) CanRedo() bool   { return len(l.state.Future) > 0 }

// Depth returns the number of undo and redo steps available.
func (l *Log[S]) Depth() (past, future int) {
	return len(l.state.Past), len(l.state.Future)
}

func (l *Log[S]) Commit(next S) {
	l.state = Reduce[S](l.state, Commit[S]{Next: next}, l.limit)
}

// Undo reports whether the present changed.
func (l *Log[S]) Undo() bool {
	if !l.CanUndo() {
		return false
	}
	l.state = Reduce[S](l.state, Undo[S]{}, l.limit)
	return true
}

// Redo reports whether the present changed.
func (l *Log[S]) Redo() bool {
	if !l.CanRedo() {
		return false
	}
	l.state = Reduce[S](l.state, Redo[S]{}, l.limit)
	return true
}

func (l *Log[S]) Reset(present S) {
	l.state = Reduce[S](l.state, Reset[S]{Present: present}, l.limit)
}
