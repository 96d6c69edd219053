package planner

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/planr/internal/event"
	"github.com/sadopc/planr/internal/timerange"
)

// memStore is a Persister whose writes can be made to fail.
type memStore struct {
	mu       sync.Mutex
	saved    event.Collection
	saves    int
	failSave error
	failLoad error
}

func (m *memStore) Save(c event.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failSave != nil {
		return m.failSave
	}
	m.saved = c.Clone()
	return nil
}

func (m *memStore) Load() (event.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad != nil {
		return nil, m.failLoad
	}
	return m.saved.Clone(), nil
}

type recordingExporter struct {
	calls int
	last  event.Collection
	err   error
}

func (r *recordingExporter) Export(c event.Collection) error {
	r.calls++
	r.last = c
	return r.err
}

func day(d int) event.Date { return event.Date{Year: 2026, Month: time.March, Day: d} }

func times(s, e string) timerange.Range {
	return timerange.Range{Start: timerange.MustParse(s), End: timerange.MustParse(e)}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	}
}

func newTestPlanner(t *testing.T, st *memStore) *Planner {
	t.Helper()
	p := New(Options{
		Store: st,
		Clock: clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 8, 0, 0, 0, time.Local)),
		NewID: sequentialIDs(),
	})
	require.NoError(t, p.Load())
	return p
}

func TestLoadDoesNotCreateHistory(t *testing.T) {
	st := &memStore{saved: event.Collection{
		{ID: "x", Title: "Persisted", Dates: event.SingleDay(day(4)), Times: times("09:00", "10:00"), Category: event.CategoryWork},
	}}
	p := newTestPlanner(t, st)

	assert.Len(t, p.Snapshot(), 1)
	assert.False(t, p.CanUndo())
	assert.Zero(t, st.saves, "load must not write back")
}

func TestLoadEmptyStore(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	assert.NotNil(t, p.Snapshot())
	assert.Empty(t, p.Snapshot())
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	st := &memStore{failLoad: errors.New("corrupt")}
	p := New(Options{Store: st})
	err := p.Load()

	var se *event.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)
	assert.Empty(t, p.Snapshot())
}

func TestCreateCommitsAndSaves(t *testing.T) {
	st := &memStore{}
	p := newTestPlanner(t, st)

	e, err := p.Create(event.Draft{Title: "Dentist"}, day(5))
	require.NoError(t, err)
	assert.Equal(t, "ev-1", e.ID)
	assert.Equal(t, event.SingleDay(day(5)), e.Dates)

	assert.True(t, p.CanUndo())
	assert.Equal(t, 1, st.saves)
	assert.Equal(t, p.Snapshot(), st.saved)
}

func TestCreateEmptyTitleLeavesPresentUnchanged(t *testing.T) {
	st := &memStore{}
	p := newTestPlanner(t, st)
	before := p.Snapshot()

	_, err := p.Create(event.Draft{Title: ""}, day(5))
	assert.ErrorIs(t, err, event.ErrEmptyTitle)
	assert.Equal(t, before, p.Snapshot())
	assert.False(t, p.CanUndo())
	assert.Zero(t, st.saves)
}

func TestCreateInPastRejected(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	_, err := p.Create(event.Draft{Title: "Yesterday"}, event.Date{Year: 2026, Month: time.February, Day: 28})
	assert.ErrorIs(t, err, event.ErrPastDate)
}

func TestCreateConflictRejected(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	_, err := p.Create(event.Draft{Title: "A", Times: times("09:00", "10:00")}, day(10))
	require.NoError(t, err)

	_, err = p.Create(event.Draft{Title: "B", Times: times("09:30", "10:30")}, day(10))
	assert.ErrorIs(t, err, event.ErrTimeConflict)
	assert.Len(t, p.Snapshot(), 1)
}

func TestCreateOnMultiDayInteriorRejected(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	_, err := p.Create(event.Draft{
		Title: "Retreat",
		Dates: event.DateRange{Start: day(10), End: day(12)},
		Times: times("13:00", "16:00"),
	}, day(10))
	require.NoError(t, err)

	_, err = p.Create(event.Draft{Title: "Call", Times: times("15:00", "15:30")}, day(11))
	var ve *event.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, event.TimeConflict, ve.Reason)
	assert.Equal(t, "Retreat", ve.Conflict.Title)
}

func TestRescheduleConflictNamesBlockingEvent(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	a, err := p.Create(event.Draft{Title: "A", Times: times("09:00", "10:00")}, day(10))
	require.NoError(t, err)
	b, err := p.Create(event.Draft{Title: "B", Times: times("09:30", "10:30")}, day(5))
	require.NoError(t, err)
	before := p.Snapshot()

	_, err = p.Reschedule(b.ID, event.SingleDay(day(10)))
	var ve *event.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, event.TimeConflict, ve.Reason)
	assert.Equal(t, a.ID, ve.Conflict.ID)
	assert.Equal(t, before, p.Snapshot())
}

func TestRescheduleCommits(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	b, _ := p.Create(event.Draft{Title: "B"}, day(5))

	moved, err := p.Reschedule(b.ID, event.DateRange{Start: day(7), End: day(8)})
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)
	assert.True(t, moved.IsMultiDay())

	got, ok := p.Lookup(b.ID)
	require.True(t, ok)
	assert.Equal(t, moved, got)
}

func TestRescheduleUnknown(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	_, err := p.Reschedule("nope", event.SingleDay(day(5)))
	assert.ErrorIs(t, err, event.ErrNotFound)
}

func TestRetime(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	e, _ := p.Create(event.Draft{Title: "E"}, day(5))

	_, err := p.Retime(e.ID, times("11:00", "10:00"))
	assert.ErrorIs(t, err, event.ErrInvalidTimeRange)

	got, err := p.Retime(e.ID, times("14:00", "15:30"))
	require.NoError(t, err)
	assert.Equal(t, times("14:00", "15:30"), got.Times)
}

func TestUpdateNotFoundSurfaced(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	err := p.Update(event.Event{ID: "ghost", Title: "x", Dates: event.SingleDay(day(4)), Times: times("09:00", "10:00")})
	assert.ErrorIs(t, err, event.ErrNotFound)
	assert.False(t, p.CanUndo())
}

func TestUpdateTitleOnlySkipsPlacementRules(t *testing.T) {
	old := event.Event{ID: "old", Title: "Last week", Dates: event.SingleDay(event.Date{Year: 2026, Month: time.February, Day: 20}), Times: times("09:00", "10:00")}
	st := &memStore{saved: event.Collection{old}}
	p := newTestPlanner(t, st)

	renamed := old
	renamed.Title = "Last week (notes)"
	require.NoError(t, p.Update(renamed))

	moved := renamed
	moved.Times = times("10:00", "11:00")
	assert.ErrorIs(t, p.Update(moved), event.ErrPastDate)
}

func TestUpdateUnchangedAddsNoHistory(t *testing.T) {
	st := &memStore{}
	p := newTestPlanner(t, st)
	e, err := p.Create(event.Draft{Title: "Same"}, day(5))
	require.NoError(t, err)

	require.NoError(t, p.Update(e))
	past, _ := p.History()
	assert.Equal(t, 1, past)
	assert.Equal(t, 1, st.saves)
}

func TestUpdateEmptyTitleRejected(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	e, _ := p.Create(event.Draft{Title: "E"}, day(5))
	e.Title = "  "
	assert.ErrorIs(t, p.Update(e), event.ErrEmptyTitle)
}

func TestDeleteUnknownIsSilentNoop(t *testing.T) {
	st := &memStore{}
	p := newTestPlanner(t, st)
	assert.NoError(t, p.Delete("missing"))
	assert.False(t, p.CanUndo())
	assert.Zero(t, st.saves)
}

func TestDeleteThenUndo(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	e, _ := p.Create(event.Draft{Title: "E"}, day(5))
	require.NoError(t, p.Delete(e.ID))
	assert.Empty(t, p.Snapshot())

	changed, err := p.Undo()
	require.NoError(t, err)
	assert.True(t, changed)
	_, ok := p.Lookup(e.ID)
	assert.True(t, ok)
}

func TestUndoRedoLaw(t *testing.T) {
	st := &memStore{}
	p := newTestPlanner(t, st)
	initial := p.Snapshot()

	for i := 0; i < 4; i++ {
		_, err := p.Create(event.Draft{Title: fmt.Sprintf("E%d", i)}, day(5+i))
		require.NoError(t, err)
	}
	final := p.Snapshot()

	for i := 0; i < 4; i++ {
		changed, err := p.Undo()
		require.NoError(t, err)
		require.True(t, changed)
	}
	assert.Equal(t, initial, p.Snapshot())
	changed, _ := p.Undo()
	assert.False(t, changed)

	for i := 0; i < 4; i++ {
		changed, err := p.Redo()
		require.NoError(t, err)
		require.True(t, changed)
	}
	assert.Equal(t, final, p.Snapshot())
	assert.Equal(t, final, st.saved, "undo/redo are persisted too")
}

func TestCommitAfterUndoClearsRedo(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	p.Create(event.Draft{Title: "one"}, day(5))
	p.Create(event.Draft{Title: "two"}, day(6))
	p.Undo()
	require.True(t, p.CanRedo())

	_, err := p.Create(event.Draft{Title: "three"}, day(7))
	require.NoError(t, err)
	assert.False(t, p.CanRedo())
	changed, err := p.Redo()
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestImportSingleUndoStep(t *testing.T) {
	st := &memStore{}
	p := newTestPlanner(t, st)
	_, err := p.Create(event.Draft{Title: "Existing", Times: times("09:00", "10:00")}, day(5))
	require.NoError(t, err)

	in := event.Collection{
		{ID: "a", Title: "Fresh", Dates: event.SingleDay(day(6)), Times: times("09:00", "10:00")},
		{ID: "b", Title: "Clash", Dates: event.SingleDay(day(5)), Times: times("09:30", "10:30")},
		{ID: "c", Title: "Old", Dates: event.SingleDay(event.Date{Year: 2026, Month: time.February, Day: 1}), Times: times("09:00", "10:00")},
		{ID: "d", Title: " ", Dates: event.SingleDay(day(7)), Times: times("09:00", "10:00")},
		{ID: "e", Title: "Clash with batch", Dates: event.SingleDay(day(6)), Times: times("09:45", "11:00")},
		{ID: "f", Title: "Trip", Dates: event.DateRange{Start: day(8), End: day(9)}, Times: times("08:00", "18:00")},
	}
	res, err := p.Import(in)
	require.NoError(t, err)

	require.Len(t, res.Added, 2)
	assert.Equal(t, "Fresh", res.Added[0].Title)
	assert.Equal(t, "Trip", res.Added[1].Title)
	assert.NotEqual(t, "a", res.Added[0].ID, "imports get fresh identities")
	assert.Equal(t, map[event.Reason]int{event.TimeConflict: 2, event.PastDate: 1, event.EmptyTitle: 1}, res.Skipped)
	assert.Equal(t, "2 added, skipped 1 past_date 2 time_conflict 1 empty_title", res.String())

	assert.Len(t, p.Snapshot(), 3)
	assert.Equal(t, p.Snapshot(), st.saved)
	past, _ := p.History()
	assert.Equal(t, 2, past, "create plus one import")

	changed, err := p.Undo()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, p.Snapshot(), 1)
}

func TestImportNothingValidCommitsNothing(t *testing.T) {
	st := &memStore{}
	p := newTestPlanner(t, st)

	res, err := p.Import(event.Collection{{ID: "x", Title: "", Dates: event.SingleDay(day(5)), Times: times("09:00", "10:00")}})
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Equal(t, 1, res.Skipped[event.EmptyTitle])
	assert.Equal(t, "0 added, skipped 1 empty_title", res.String())
	assert.False(t, p.CanUndo())
	assert.Zero(t, st.saves)
}

func TestCheckAndConflictsDoNotCommit(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	a, err := p.Create(event.Draft{Title: "A", Times: times("09:00", "10:00")}, day(5))
	require.NoError(t, err)
	b, err := p.Create(event.Draft{Title: "B", Times: times("12:00", "13:00")}, day(6))
	require.NoError(t, err)

	fromPast := event.DateRange{Start: event.Date{Year: 2026, Month: time.February, Day: 27}, End: day(5)}
	assert.ErrorIs(t, p.Check(b, fromPast), event.ErrPastDate)
	assert.Empty(t, p.Conflicts(b, fromPast), "different hours")

	retimed := a
	retimed.Times = times("12:30", "13:30")
	hits := p.Conflicts(retimed, event.DateRange{Start: day(5), End: day(6)})
	require.Len(t, hits, 1)
	assert.Equal(t, b.ID, hits[0].Other.ID)
	assert.Equal(t, day(6), hits[0].Day)
	assert.ErrorIs(t, p.Check(retimed, event.DateRange{Start: day(5), End: day(6)}), event.ErrTimeConflict)

	past, _ := p.History()
	assert.Equal(t, 2, past)
}

func TestSaveFailureKeepsCommit(t *testing.T) {
	st := &memStore{failSave: errors.New("disk full")}
	p := newTestPlanner(t, st)

	e, err := p.Create(event.Draft{Title: "Kept"}, day(5))
	var se *event.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "save", se.Op)

	got, ok := p.Lookup(e.ID)
	require.True(t, ok, "in-memory state is authoritative")
	assert.Equal(t, "Kept", got.Title)

	// Still usable after the failure.
	st.failSave = nil
	_, err = p.Create(event.Draft{Title: "Next"}, day(6))
	require.NoError(t, err)
	assert.Len(t, st.saved, 2)
}

func TestHistoryLimit(t *testing.T) {
	p := New(Options{
		Store:        &memStore{},
		Clock:        clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 8, 0, 0, 0, time.Local)),
		HistoryLimit: 2,
	})
	for i := 0; i < 5; i++ {
		_, err := p.Create(event.Draft{Title: "x"}, day(5+i))
		require.NoError(t, err)
	}
	past, _ := p.History()
	assert.Equal(t, 2, past)
}

func TestAutoExportOnCreateAndUpdateOnly(t *testing.T) {
	ex := &recordingExporter{}
	p := New(Options{
		Store:      &memStore{},
		Clock:      clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 8, 0, 0, 0, time.Local)),
		NewID:      sequentialIDs(),
		AutoExport: ex,
	})

	e, err := p.Create(event.Draft{Title: "E"}, day(5))
	require.NoError(t, err)
	e.Description = "more"
	require.NoError(t, p.Update(e))
	require.NoError(t, p.Delete(e.ID))
	p.Undo()

	assert.Equal(t, 2, ex.calls)
	assert.Equal(t, "more", ex.last[0].Description)

	_, err = p.Create(event.Draft{Title: ""}, day(5))
	assert.Error(t, err)
	assert.Equal(t, 2, ex.calls, "rejected changes are not exported")
}

func TestAutoExportFailureDoesNotBlock(t *testing.T) {
	p := New(Options{
		Clock:      clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 8, 0, 0, 0, time.Local)),
		AutoExport: &recordingExporter{err: errors.New("read-only")},
	})
	_, err := p.Create(event.Draft{Title: "E"}, day(5))
	assert.NoError(t, err)
}

func TestSnapshotIsACopy(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	p.Create(event.Draft{Title: "E"}, day(5))
	snap := p.Snapshot()
	snap[0].Title = "mutated"

	got := p.Snapshot()
	assert.Equal(t, "E", got[0].Title)
}

func TestConcurrentMutationsSerialized(t *testing.T) {
	p := newTestPlanner(t, &memStore{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.Create(event.Draft{Title: "E", Times: times("09:00", "10:00")}, day(2+i))
			p.Undo()
			p.Redo()
		}(i)
	}
	wg.Wait()

	snap := p.Snapshot()
	seen := map[event.Date]bool{}
	for _, e := range snap {
		assert.False(t, seen[e.Dates.Start], "no two events share a slot")
		seen[e.Dates.Start] = true
	}
}
