// Package planner owns the event collection and its undo history. Every
// change is validated, committed as a new snapshot, then mirrored to the
// persistence collaborator.
package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/sadopc/planr/internal/conflict"
	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/history"
	"github.com/sadopc/planr/internal/logging"
	"github.com/sadopc/planr/internal/metrics"
	"github.com/sadopc/planr/internal/timerange"
)

// Persister durably mirrors the collection.
type Persister interface {
	Save(event.Collection) error
	Load() (event.Collection, error)
}

// AutoExporter receives the snapshot after each successful create or update.
type AutoExporter interface {
	Export(event.Collection) error
}

type Options struct {
	Store        Persister
	Clock        clockwork.Clock
	Logger       *slog.Logger
	HistoryLimit int           // 0 keeps every snapshot
	NewID        func() string // defaults to event.NewID
	AutoExport   AutoExporter
}

// Planner is safe for concurrent use. All mutations, including undo and
// redo, are serialized so a pending drop never interleaves with an undo.
type Planner struct {
	mu        sync.Mutex
	log       *history.Log[event.Collection]
	validator *conflict.Validator
	store     Persister
	logger    *slog.Logger
	newID     func() string
	export    AutoExporter
}

func New(opts Options) *Planner {
	if opts.NewID == nil {
		opts.NewID = event.NewID
	}
	return &Planner{
		log:       history.NewLog[event.Collection](event.Collection{}, opts.HistoryLimit),
		validator: conflict.New(opts.Clock),
		store:     opts.Store,
		logger:    logging.For(opts.Logger, "planner"),
		newID:     opts.NewID,
		export:    opts.AutoExport,
	}
}

// Load replaces the present with the persisted collection. It does not
// create an undo step. On failure the planner starts empty and the error is
// a *event.StorageError.
func (p *Planner) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	c, err := p.store.Load()
	if err != nil {
		metrics.StorageError("load")
		p.logger.Error("load events failed", "err", err)
		p.log.Reset(event.Collection{})
		return &event.StorageError{Op: "load", Err: err}
	}
	if c == nil {
		c = event.Collection{}
	}
	p.log.Reset(c)
	metrics.SetEventCount(len(c))
	p.logger.Info("events loaded", "count", len(c))
	return nil
}

// Snapshot returns a copy of the present collection.
func (p *Planner) Snapshot() event.Collection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.Present().Clone()
}

func (p *Planner) Lookup(id string) (event.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.Present().Find(id)
}

// Today is the current calendar day as the validator sees it.
func (p *Planner) Today() event.Date {
	return p.validator.Today()
}

func (p *Planner) CanUndo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.CanUndo()
}

func (p *Planner) CanRedo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.CanRedo()
}

// History returns the current past and future depths.
func (p *Planner) History() (past, future int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.Depth()
}

// Check validates placing candidate on r against the present without
// committing anything.
func (p *Planner) Check(candidate event.Event, r event.DateRange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validator.Check(candidate, r, p.log.Present())
}

// Conflicts lists every overlap candidate would have on r.
func (p *Planner) Conflicts(candidate event.Event, r event.DateRange) []conflict.Conflict {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validator.Conflicts(candidate, r, p.log.Present())
}

// Create builds an event from d on day, validates it and commits it. A
// *event.ValidationError leaves the collection unchanged; a
// *event.StorageError means the event was committed but not persisted.
func (p *Planner) Create(d event.Draft, day event.Date) (event.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := event.Create(d, day, p.newID())
	if err != nil {
		return event.Event{}, p.reject("create", err)
	}
	present := p.log.Present()
	if err := p.validator.Check(e, e.Dates, present); err != nil {
		return event.Event{}, p.reject("create", err)
	}
	next := event.Insert(present, e)
	err = p.commit("create", next)
	p.autoExport(next)
	return e, err
}

// Update replaces the stored event with e. Placement rules are only applied
// when the dates or times change, so past events stay editable.
func (p *Planner) Update(e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	present := p.log.Present()
	old, ok := present.Find(e.ID)
	if !ok {
		p.logger.Warn("update of unknown event", "id", e.ID)
		return event.ErrNotFound
	}
	if err := event.Validate(e); err != nil {
		return p.reject("update", err)
	}
	if old.Dates != e.Dates || old.Times != e.Times {
		if err := p.validator.Check(e, e.Dates, present); err != nil {
			return p.reject("update", err)
		}
	}
	next, err := event.Update(present, e)
	if err != nil {
		return err
	}
	if next.Equal(present) {
		return nil
	}
	err = p.commit("update", next)
	p.autoExport(next)
	return err
}

// Delete removes id. Deleting an unknown identity does nothing.
func (p *Planner) Delete(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	present := p.log.Present()
	if present.Index(id) < 0 {
		p.logger.Debug("delete of unknown event ignored", "id", id)
		return nil
	}
	return p.commit("delete", event.Delete(present, id))
}

// Reschedule moves id onto r keeping its times.
func (p *Planner) Reschedule(id string, r event.DateRange) (event.Event, error) {
	return p.replace("reschedule", id, func(e *event.Event) { e.Dates = r })
}

// Retime changes the daily time range of id keeping its dates.
func (p *Planner) Retime(id string, r timerange.Range) (event.Event, error) {
	return p.replace("retime", id, func(e *event.Event) { e.Times = r })
}

func (p *Planner) replace(op, id string, change func(*event.Event)) (event.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	present := p.log.Present()
	e, ok := present.Find(id)
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	change(&e)
	if err := event.Validate(e); err != nil {
		return event.Event{}, p.reject(op, err)
	}
	if err := p.validator.Check(e, e.Dates, present); err != nil {
		return event.Event{}, p.reject(op, err)
	}
	next, err := event.Update(present, e)
	if err != nil {
		return event.Event{}, err
	}
	return e, p.commit(op, next)
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Added   []event.Event
	Skipped map[event.Reason]int
}

// String reads like "2 added, skipped 1 past_date 3 time_conflict".
func (r ImportResult) String() string {
	out := fmt.Sprintf("%d added", len(r.Added))
	reasons := slices.Sorted(maps.Keys(r.Skipped))
	for i, reason := range reasons {
		if i == 0 {
			out += ", skipped"
		}
		out += fmt.Sprintf(" %d %s", r.Skipped[reason], reason)
	}
	return out
}

// Import adds every event of c that passes the same checks as Create, in
// order, as a single undo step. Imported events get fresh identities.
// Events that fail validation are counted by reason and skipped.
func (p *Planner) Import(c event.Collection) (ImportResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := ImportResult{Skipped: map[event.Reason]int{}}
	next := p.log.Present()
	for _, in := range c {
		e := in
		e.ID = p.newID()
		e.Category = e.Category.OrDefault()
		err := event.Validate(e)
		if err == nil {
			err = p.validator.Check(e, e.Dates, next)
		}
		if err != nil {
			res.Skipped[event.ReasonOf(p.reject("import", err))]++
			continue
		}
		next = event.Insert(next, e)
		res.Added = append(res.Added, e)
	}
	if len(res.Added) == 0 {
		return res, nil
	}
	p.logger.Info("imported events", "added", len(res.Added), "skipped", len(c)-len(res.Added))
	err := p.commit("import", next)
	p.autoExport(next)
	return res, err
}

// Undo steps back one snapshot. It reports whether anything changed; the
// error is only ever a *event.StorageError.
func (p *Planner) Undo() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.log.Undo() {
		return false, nil
	}
	metrics.HistoryStep("undo")
	p.logger.Debug("undo", "events", len(p.log.Present()))
	return true, p.save()
}

func (p *Planner) Redo() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.log.Redo() {
		return false, nil
	}
	metrics.HistoryStep("redo")
	p.logger.Debug("redo", "events", len(p.log.Present()))
	return true, p.save()
}

func (p *Planner) commit(op string, next event.Collection) error {
	p.log.Commit(next)
	metrics.Commit(op)
	past, _ := p.log.Depth()
	p.logger.Debug("committed", "op", op, "events", len(next), "undo_depth", past)
	return p.save()
}

func (p *Planner) save() error {
	present := p.log.Present()
	metrics.SetEventCount(len(present))
	if p.store == nil {
		return nil
	}
	if err := p.store.Save(present); err != nil {
		metrics.StorageError("save")
		p.logger.Error("save events failed", "err", err)
		return &event.StorageError{Op: "save", Err: err}
	}
	return nil
}

func (p *Planner) reject(op string, err error) error {
	var ve *event.ValidationError
	if errors.As(err, &ve) {
		metrics.Rejection(ve.Reason.String())
		p.logger.Info("change rejected", "op", op, "reason", ve.Reason.String())
	}
	return err
}

func (p *Planner) autoExport(c event.Collection) {
	if p.export == nil {
		return
	}
	if err := p.export.Export(c); err != nil {
		p.logger.Warn("auto-export failed", "err", err)
	}
}
