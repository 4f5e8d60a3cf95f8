// Package task models a unit of requested work tracked through creation,
// claiming and completion, persisted as one row of the task sheet.
package task

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format used in every persisted and displayed
// timestamp of the task table.
const TimeLayout = "02.01.2006 15:04"

// Status is a task's lifecycle stage. It persists as a human-readable label,
// not as the integer.
type Status int

const (
	StatusNotTaken Status = iota
	StatusTaken
	StatusCompleted
	StatusCanceled
)

var statusLabels = map[Status]string{
	StatusNotTaken:  "Not started",
	StatusTaken:     "Taken",
	StatusCompleted: "Completed",
	StatusCanceled:  "Canceled",
}

// Label returns the persisted form of the status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether the status ends the task's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// ParseStatus maps a persisted label back to its Status.
func ParseStatus(label string) (Status, error) {
	for s, l := range statusLabels {
		if l == label {
			return s, nil
		}
	}
	return 0, fmt.Errorf("task: unknown status label %q", label)
}

// ConflictReason names an expected, soft failure of a task operation.
type ConflictReason string

const (
	ConflictAlreadyTaken ConflictReason = "already-taken"
	ConflictSameExecutor ConflictReason = "same-executor"
	ConflictEmptyComment ConflictReason = "empty-comment"
)

// Conflict is the non-fatal branch of a task operation's outcome. The zero
// value means the operation succeeded; callers must check None before using
// the task.
type Conflict struct {
	Reason   ConflictReason
	Executor int64 // current executor, set for already-taken and same-executor
}

// None reports whether the operation succeeded.
func (c Conflict) None() bool { return c.Reason == "" }

// Task is the domain model of one row of the task table. An in-memory Task
// is a transient projection; the sheet row is authoritative.
type Task struct {
	ID            int
	Room          int
	Text          string
	CreatedAt     time.Time
	Author        string
	Priority      int
	Status        Status
	Executor      int64 // telegram ID of the claimant, 0 when unassigned
	TakenAt       *time.Time
	CompleteUntil *time.Time
	CompletedAt   *time.Time
	Comments      []Comment
	Blocked       bool

	changed map[string]string
}

// New constructs a freshly created, not-yet-taken task.
func New(id, room int, text, author string, createdAt time.Time, priority int) *Task {
	return &Task{
		ID:        id,
		Room:      room,
		Text:      text,
		CreatedAt: createdAt,
		Author:    author,
		Priority:  priority,
		Status:    StatusNotTaken,
	}
}

// markChanged records a per-field diff entry. The diff is informational:
// persistence always rewrites the whole row, the sheet has no partial-update
// form.
func (t *Task) markChanged(field, value string) {
	if t.changed == nil {
		t.changed = make(map[string]string)
	}
	t.changed[field] = value
}

// Changed returns a copy of the pending per-field diff.
func (t *Task) Changed() map[string]string {
	out := make(map[string]string, len(t.changed))
	for k, v := range t.changed {
		out[k] = v
	}
	return out
}

// takeChanged returns the pending diff and clears it; called on successful
// persist.
func (t *Task) takeChanged() map[string]string {
	out := t.changed
	t.changed = nil
	return out
}

// Take assigns the task to an executor. It fails softly when the task is
// already assigned; the caller holding the shared pending-claims registry,
// not this check, is what guarantees at-most-one claimant under races.
func (t *Task) Take(executor int64, at time.Time) Conflict {
	if t.Executor != 0 {
		return Conflict{Reason: ConflictAlreadyTaken, Executor: t.Executor}
	}
	t.Executor = executor
	t.Status = StatusTaken
	t.TakenAt = &at
	t.markChanged("executor", fmt.Sprint(executor))
	t.markChanged("status", t.Status.Label())
	t.markChanged("taken_at", at.Format(TimeLayout))
	return Conflict{}
}

// Complete ends the task successfully, optionally appending a comment first.
func (t *Task) Complete(at time.Time, comment string) {
	t.end(StatusCompleted, at, comment)
}

// Cancel ends the task without completion, optionally appending a comment
// first. Cancellation is a status transition, never a row removal.
func (t *Task) Cancel(at time.Time, comment string) {
	t.end(StatusCanceled, at, comment)
}

func (t *Task) end(status Status, at time.Time, comment string) {
	if comment != "" {
		t.AddComment(comment, at)
	}
	t.Status = status
	t.CompletedAt = &at
	t.markChanged("status", status.Label())
	t.markChanged("completed_at", at.Format(TimeLayout))
}

// ReturnToWork reopens an ended task. The comment is mandatory: with an
// empty one the task is left untouched.
func (t *Task) ReturnToWork(comment string, at time.Time) Conflict {
	if comment == "" {
		return Conflict{Reason: ConflictEmptyComment}
	}
	t.AddComment(comment, at)
	t.Status = StatusTaken
	t.CompletedAt = nil
	t.markChanged("status", t.Status.Label())
	t.markChanged("completed_at", "")
	return Conflict{}
}

// ChangeExecutor reassigns the task, recording the previous executor's
// tenure as an audit comment. prevName is the display name of the previous
// executor. Fails softly when the executor is unchanged.
func (t *Task) ChangeExecutor(newExecutor int64, prevName string, at time.Time) Conflict {
	if newExecutor == t.Executor {
		return Conflict{Reason: ConflictSameExecutor, Executor: t.Executor}
	}
	since := ""
	if t.TakenAt != nil {
		since = t.TakenAt.Format(TimeLayout)
	}
	t.AddComment(fmt.Sprintf("Previous executor %s worked on the task since %s", prevName, since), at)
	t.Executor = newExecutor
	t.TakenAt = &at
	t.markChanged("executor", fmt.Sprint(newExecutor))
	t.markChanged("taken_at", at.Format(TimeLayout))
	return Conflict{}
}

// AddComment appends a timestamped comment. Comments are append-only from
// the domain's perspective.
func (t *Task) AddComment(text string, at time.Time) {
	t.Comments = append(t.Comments, Comment{At: at, Text: text})
	t.markChanged("comments", EncodeComments([]Comment{{At: at, Text: text}}))
}

// SetPriority changes the task's priority.
func (t *Task) SetPriority(p int) {
	t.Priority = p
	t.markChanged("priority", fmt.Sprint(p))
}

func (t *Task) String() string {
	return fmt.Sprintf("<Task id=%d room=%d status=%s>", t.ID, t.Room, t.Status.Label())
}
