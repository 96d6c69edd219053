// Package drag turns move and resize gestures into committed date-range
// changes. Drops are committed after a short settle delay and resize
// streams are debounced; in both cases only the latest update in the window
// is applied and a new gesture cancels the pending one.
package drag

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sadopc/planr/internal/event"
)

const (
	DefaultDropDelay      = 50 * time.Millisecond
	DefaultResizeDebounce = 300 * time.Millisecond
	DefaultPixelsPerDay   = 100
)

// ErrCollapsedRange is returned for a resize delta that would leave the
// start on or after the end. The delta is ignored.
var ErrCollapsedRange = errors.New("resize would collapse the event")

// Engine validates and commits a new date range for an event.
type Engine interface {
	Lookup(id string) (event.Event, bool)
	Reschedule(id string, r event.DateRange) (event.Event, error)
}

type Gesture int

const (
	Move Gesture = iota + 1
	Resize
)

func (g Gesture) String() string {
	switch g {
	case Move:
		return "move"
	case Resize:
		return "resize"
	}
	return "none"
}

type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

func (e Edge) String() string {
	if e == EdgeStart {
		return "start"
	}
	return "end"
}

// State of the single in-flight manipulation.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

type Config struct {
	// DropDelay defers a drop's commit; zero commits synchronously.
	DropDelay      time.Duration
	ResizeDebounce time.Duration
	PixelsPerDay   int
}

func (c Config) withDefaults() Config {
	if c.DropDelay < 0 {
		c.DropDelay = 0
	}
	if c.ResizeDebounce <= 0 {
		c.ResizeDebounce = DefaultResizeDebounce
	}
	if c.PixelsPerDay <= 0 {
		c.PixelsPerDay = DefaultPixelsPerDay
	}
	return c
}

// Outcome reports one attempted commit. Err is nil when Event was committed.
type Outcome struct {
	Gesture Gesture
	EventID string
	Range   event.DateRange
	Event   event.Event
	Err     error
}

// Preview describes the in-flight manipulation for display.
type Preview struct {
	Gesture  Gesture
	Edge     Edge
	Original event.Event
	Range    event.DateRange
	Armed    bool // a commit is scheduled
}

type session struct {
	gesture  Gesture
	edge     Edge
	original event.Event
	target   event.DateRange
	timer    clockwork.Timer
	gen      uint64
}

// Reconciler owns the single in-flight gesture.
type Reconciler struct {
	engine Engine
	clock  clockwork.Clock
	cfg    Config
	notify func(Outcome)

	mu  sync.Mutex
	cur *session
	gen uint64
}

// New returns a reconciler. notify receives every outcome, possibly from a
// timer goroutine; it may be nil.
func New(engine Engine, clock clockwork.Clock, cfg Config, notify func(Outcome)) *Reconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if notify == nil {
		notify = func(Outcome) {}
	}
	return &Reconciler{engine: engine, clock: clock, cfg: cfg.withDefaults(), notify: notify}
}

func (r *Reconciler) Config() Config { return r.cfg }

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return Idle
	}
	if r.cur.gesture == Move {
		return Dragging
	}
	return Resizing
}

func (r *Reconciler) Pending() (Preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return Preview{}, false
	}
	return Preview{
		Gesture:  r.cur.gesture,
		Edge:     r.cur.edge,
		Original: r.cur.original,
		Range:    r.cur.target,
		Armed:    r.cur.timer != nil,
	}, true
}

// Drop moves id so it starts on dayOfMonth of the displayed month, keeping
// its length in days. Validation happens when the commit runs.
func (r *Reconciler) Drop(id string, year int, month time.Month, dayOfMonth int) error {
	e, ok := r.engine.Lookup(id)
	if !ok {
		return fmt.Errorf("drop %s: %w", id, event.ErrNotFound)
	}
	start := event.NewDate(year, month, dayOfMonth)
	target := e.Dates.Shift(e.Dates.Start.DaysUntil(start))

	r.mu.Lock()
	r.stopLocked()
	s := r.beginLocked(Move, EdgeStart, e)
	s.target = target
	if r.cfg.DropDelay == 0 {
		r.cur = nil
		r.mu.Unlock()
		r.apply(Move, e, target)
		return nil
	}
	r.armLocked(s, r.cfg.DropDelay)
	r.mu.Unlock()
	return nil
}

// Resize feeds one delta of a resize stream. pixelDelta is measured from the
// start of the gesture, so each call supersedes the previous one. A delta on
// another event or edge starts a new gesture.
func (r *Reconciler) Resize(id string, edge Edge, pixelDelta int) error {
	r.mu.Lock()
	s := r.cur
	if s == nil || s.gesture != Resize || s.original.ID != id || s.edge != edge {
		r.mu.Unlock()
		e, ok := r.engine.Lookup(id)
		if !ok {
			return fmt.Errorf("resize %s: %w", id, event.ErrNotFound)
		}
		r.mu.Lock()
		r.stopLocked()
		s = r.beginLocked(Resize, edge, e)
	}
	defer r.mu.Unlock()

	days := r.Days(pixelDelta)
	target := resized(s.original.Dates, edge, days)
	if days != 0 && !target.Start.Before(target.End) {
		r.disarmLocked(s)
		s.target = s.original.Dates
		return ErrCollapsedRange
	}
	s.target = target
	r.armLocked(s, r.cfg.ResizeDebounce)
	return nil
}

// Release ends the current gesture, committing any pending update now.
func (r *Reconciler) Release() {
	r.mu.Lock()
	s := r.cur
	if s == nil {
		r.mu.Unlock()
		return
	}
	r.cur = nil
	armed := s.timer != nil
	r.disarmLocked(s)
	r.mu.Unlock()

	if armed {
		r.apply(s.gesture, s.original, s.target)
	}
}

// Cancel drops the current gesture without committing anything.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Days quantizes a pixel delta to whole days, rounding half away from zero.
func (r *Reconciler) Days(pixels int) int {
	return int(math.Round(float64(pixels) / float64(r.cfg.PixelsPerDay)))
}

func resized(dates event.DateRange, edge Edge, days int) event.DateRange {
	if edge == EdgeStart {
		dates.Start = dates.Start.AddDays(days)
	} else {
		dates.End = dates.End.AddDays(days)
	}
	return dates
}

func (r *Reconciler) beginLocked(g Gesture, edge Edge, e event.Event) *session {
	r.gen++
	s := &session{gesture: g, edge: edge, original: e, target: e.Dates, gen: r.gen}
	r.cur = s
	return s
}

func (r *Reconciler) stopLocked() {
	if r.cur != nil {
		r.disarmLocked(r.cur)
		r.cur = nil
	}
}

func (r *Reconciler) disarmLocked(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	r.gen++
	s.gen = r.gen
}

func (r *Reconciler) armLocked(s *session, d time.Duration) {
	r.disarmLocked(s)
	gen := s.gen
	s.timer = r.clock.AfterFunc(d, func() { r.fire(gen) })
}

func (r *Reconciler) fire(gen uint64) {
	r.mu.Lock()
	s := r.cur
	if s == nil || s.gen != gen {
		r.mu.Unlock()
		return
	}
	s.timer = nil
	if s.gesture == Move {
		r.cur = nil
	}
	g, original, target := s.gesture, s.original, s.target
	r.mu.Unlock()

	o, ok := r.commit(g, original, target)
	if !ok {
		return
	}
	var ve *event.ValidationError
	if g == Resize && errors.As(o.Err, &ve) {
		// A refused resize ends the gesture unless a newer delta arrived
		// while the commit ran.
		r.mu.Lock()
		if r.cur == s && s.gen == gen && s.timer == nil {
			r.cur = nil
			r.gen++
		}
		r.mu.Unlock()
	}
	r.notify(o)
}

func (r *Reconciler) apply(g Gesture, original event.Event, target event.DateRange) {
	if o, ok := r.commit(g, original, target); ok {
		r.notify(o)
	}
}

// commit runs outside r.mu; the engine serializes commits with undo/redo.
// It reports false when target already matches the stored dates.
func (r *Reconciler) commit(g Gesture, original event.Event, target event.DateRange) (Outcome, bool) {
	if cur, ok := r.engine.Lookup(original.ID); ok && cur.Dates == target {
		return Outcome{}, false
	}
	committed, err := r.engine.Reschedule(original.ID, target)
	return Outcome{
		Gesture: g,
		EventID: original.ID,
		Range:   target,
		Event:   committed,
		Err:     err,
	}, true
}
