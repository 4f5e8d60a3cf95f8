package task

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/akimovd/deskbot/internal/sheets"
)

// Event is an audit record of one repository operation. Recording is
// best-effort: a failed recorder never fails the operation itself.
type Event struct {
	TaskID int
	Kind   string
	Actor  string
	Detail string
	At     time.Time
}

// Recorder receives audit events. models.Recorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// RepositoryOpts configures a Repository.
type RepositoryOpts struct {
	Rows     sheets.RowStore
	Names    NameMap  // optional, maps executor IDs to display names
	Recorder Recorder // optional
	Now      func() time.Time
}

// Repository reads and writes tasks against the task sheet. Every mutation
// funnels through a named operation here: mutate the in-memory task, then
// rewrite its whole row. There is no partial update and no transaction; a
// crash between the id reservation and the row write leaves a reserved but
// empty row, which decoding later skips.
type Repository struct {
	rows  sheets.RowStore
	codec Codec
	rec   Recorder
	now   func() time.Time
}

// NewRepository creates a Repository.
func NewRepository(opts RepositoryOpts) (*Repository, error) {
	if opts.Rows == nil {
		return nil, fmt.Errorf("task: repository requires a row store")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Repository{
		rows:  opts.Rows,
		codec: Codec{Names: opts.Names},
		rec:   opts.Recorder,
		now:   now,
	}, nil
}

// ids returns the current id column without its header, in row order.
func (r *Repository) ids(ctx context.Context) ([]int, error) {
	col, err := r.rows.Column(ctx, colID)
	if err != nil {
		return nil, fmt.Errorf("task: read id column: %w", err)
	}
	var ids []int
	for i, cell := range col {
		if i == 0 {
			continue // header
		}
		id, err := strconv.Atoi(cell)
		if err != nil {
			log.Printf("task: skipping non-numeric id cell %q", cell)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// rowIndex maps a task id to its 1-based sheet row, or 0 when absent.
func (r *Repository) rowIndex(ctx context.Context, id int) (int, error) {
	ids, err := r.ids(ctx)
	if err != nil {
		return 0, err
	}
	for i, have := range ids {
		if have == id {
			return i + 2, nil // +1 for the header row, +1 for 1-based
		}
	}
	return 0, nil
}

// Create allocates the next id, reserves its row with a plain id cell, then
// writes the full row. The reservation narrows the window in which two
// writers can allocate the same id; it does not close it.
func (r *Repository) Create(ctx context.Context, room int, text, author string, priority int) (*Task, error) {
	ids, err := r.ids(ctx)
	if err != nil {
		return nil, err
	}
	newID := 1
	for _, id := range ids {
		if id >= newID {
			newID = id + 1
		}
	}
	rowIdx := newID + 1
	if err := r.rows.UpdateCell(ctx, rowIdx, colID, strconv.Itoa(newID)); err != nil {
		return nil, fmt.Errorf("task: reserve id %d: %w", newID, err)
	}
	t := New(newID, room, text, author, r.now(), priority)
	if err := r.rows.Update(ctx, rowIdx, r.codec.Encode(t)); err != nil {
		return nil, fmt.Errorf("task: write task %d: %w", newID, err)
	}
	t.takeChanged()
	r.record(ctx, Event{TaskID: newID, Kind: "created", Actor: author, Detail: text})
	return t, nil
}

// Get returns the task with the given id, or nil when no row carries it.
func (r *Repository) Get(ctx context.Context, id int) (*Task, error) {
	idx, err := r.rowIndex(ctx, id)
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		log.Printf("task: no task with id %d", id)
		return nil, nil
	}
	row, err := r.rows.Row(ctx, idx)
	if err != nil {
		return nil, fmt.Errorf("task: read task %d: %w", id, err)
	}
	t, err := r.codec.Decode(sheets.PadRow(row, SheetWidth))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns tasks whose cells equal every filter value. Filter keys are
// sheet column names; values compare against the raw cell, so a status
// filter takes the label and an executor filter the display name. Unknown
// keys are dropped with a warning rather than failing the read.
func (r *Repository) List(ctx context.Context, filters map[string]string) ([]*Task, error) {
	checks := make(map[int]string, len(filters))
	for key, want := range filters {
		col, ok := Columns[key]
		if !ok {
			log.Printf("task: dropping unknown filter column %q", key)
			continue
		}
		checks[col] = want
	}
	rows, err := r.rows.Rows(ctx, 1000)
	if err != nil {
		return nil, fmt.Errorf("task: read task rows: %w", err)
	}
	var out []*Task
	for _, row := range rows {
		row = sheets.PadRow(row, SheetWidth)
		match := true
		for col, want := range checks {
			if row[col-1] != want {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		t, err := r.codec.Decode(row)
		if err != nil {
			log.Printf("task: skipping undecodable row: %v", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Save rewrites the task's row and clears its pending diff.
func (r *Repository) Save(ctx context.Context, t *Task) error {
	idx, err := r.rowIndex(ctx, t.ID)
	if err != nil {
		return err
	}
	if idx == 0 {
		return fmt.Errorf("task: save: no row for task %d", t.ID)
	}
	if err := r.rows.Update(ctx, idx, r.codec.Encode(t)); err != nil {
		return fmt.Errorf("task: write task %d: %w", t.ID, err)
	}
	t.takeChanged()
	return nil
}

// Take claims the task for an executor and persists the claim.
func (r *Repository) Take(ctx context.Context, t *Task, executor int64) (Conflict, error) {
	if c := t.Take(executor, r.now()); !c.None() {
		return c, nil
	}
	if err := r.Save(ctx, t); err != nil {
		return Conflict{}, err
	}
	r.record(ctx, Event{TaskID: t.ID, Kind: "taken", Actor: r.codec.executorName(executor)})
	return Conflict{}, nil
}

// Complete ends the task successfully and persists the transition.
func (r *Repository) Complete(ctx context.Context, t *Task, comment string) error {
	t.Complete(r.now(), comment)
	if err := r.Save(ctx, t); err != nil {
		return err
	}
	r.record(ctx, Event{TaskID: t.ID, Kind: "completed", Actor: r.codec.executorName(t.Executor), Detail: comment})
	return nil
}

// Cancel ends the task without completion and persists the transition.
func (r *Repository) Cancel(ctx context.Context, t *Task, actor, comment string) error {
	t.Cancel(r.now(), comment)
	if err := r.Save(ctx, t); err != nil {
		return err
	}
	r.record(ctx, Event{TaskID: t.ID, Kind: "canceled", Actor: actor, Detail: comment})
	return nil
}

// ReturnToWork reopens an ended task. With an empty comment the task and the
// sheet are left untouched.
func (r *Repository) ReturnToWork(ctx context.Context, t *Task, actor, comment string) (Conflict, error) {
	if c := t.ReturnToWork(comment, r.now()); !c.None() {
		return c, nil
	}
	if err := r.Save(ctx, t); err != nil {
		return Conflict{}, err
	}
	r.record(ctx, Event{TaskID: t.ID, Kind: "returned", Actor: actor, Detail: comment})
	return Conflict{}, nil
}

// ChangeExecutor reassigns the task, auditing the previous executor's
// tenure as a comment.
func (r *Repository) ChangeExecutor(ctx context.Context, t *Task, newExecutor int64) (Conflict, error) {
	prev := r.codec.executorName(t.Executor)
	if c := t.ChangeExecutor(newExecutor, prev, r.now()); !c.None() {
		return c, nil
	}
	if err := r.Save(ctx, t); err != nil {
		return Conflict{}, err
	}
	r.record(ctx, Event{TaskID: t.ID, Kind: "reassigned", Actor: r.codec.executorName(newExecutor), Detail: prev})
	return Conflict{}, nil
}

// AddComment appends a comment and persists the row.
func (r *Repository) AddComment(ctx context.Context, t *Task, actor, text string) error {
	t.AddComment(text, r.now())
	if err := r.Save(ctx, t); err != nil {
		return err
	}
	r.record(ctx, Event{TaskID: t.ID, Kind: "commented", Actor: actor, Detail: text})
	return nil
}

// SetPriority changes the task's priority and persists the row.
func (r *Repository) SetPriority(ctx context.Context, t *Task, actor string, priority int) error {
	t.SetPriority(priority)
	if err := r.Save(ctx, t); err != nil {
		return err
	}
	r.record(ctx, Event{TaskID: t.ID, Kind: "reprioritized", Actor: actor, Detail: strconv.Itoa(priority)})
	return nil
}

func (r *Repository) record(ctx context.Context, ev Event) {
	if r.rec == nil {
		return
	}
	ev.At = r.now()
	r.rec.Record(ctx, ev)
}
