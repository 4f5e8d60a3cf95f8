package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SheetWidth is the number of columns of one task row.
const SheetWidth = 13

// 1-based column positions within a task row.
const (
	colID = iota + 1
	colRoom
	colText
	colCreatedAt
	colAuthor
	colPriority
	colStatus
	colExecutor
	colTakenAt
	colCompleteUntil
	colCompletedAt
	colComments
	colBlocked
)

// Columns maps the sheet's column names to their 1-based positions, in the
// order the header row lists them.
var Columns = map[string]int{
	"id":             colID,
	"room":           colRoom,
	"text":           colText,
	"created_at":     colCreatedAt,
	"author":         colAuthor,
	"priority":       colPriority,
	"status":         colStatus,
	"executor":       colExecutor,
	"taken_at":       colTakenAt,
	"complete_until": colCompleteUntil,
	"completed_at":   colCompletedAt,
	"comments":       colComments,
	"is_blocked":     colBlocked,
}

// SheetHeader returns the header row of the task sheet.
func SheetHeader() []string {
	return []string{
		"id", "room", "text", "created_at", "author", "priority", "status",
		"executor", "taken_at", "complete_until", "completed_at", "comments",
		"is_blocked",
	}
}

// NameMap resolves between executor IDs and the display names the executor
// column stores. directory.Registry satisfies it.
type NameMap interface {
	NameByID(id int64) (string, bool)
	IDByName(name string) (int64, bool)
}

// ParseError reports a task row that could not be decoded: wrong column
// count or a cell whose value does not parse as its column's type.
type ParseError struct {
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("task: bad %s cell %q: %v", e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Codec translates between Task values and 13-cell sheet rows. The executor
// cell stores a display name; Names does the mapping both ways.
type Codec struct {
	Names NameMap
}

// Encode serializes the task into its full row. The id cell is written as a
// self-referential row formula so that manual row insertions above the task
// renumber it instead of silently detaching it from its row.
func (c Codec) Encode(t *Task) []string {
	row := make([]string, SheetWidth)
	row[colID-1] = fmt.Sprintf("=ROW($A$%d)", t.ID)
	row[colRoom-1] = strconv.Itoa(t.Room)
	row[colText-1] = t.Text
	row[colCreatedAt-1] = t.CreatedAt.Format(TimeLayout)
	row[colAuthor-1] = t.Author
	row[colPriority-1] = strconv.Itoa(t.Priority)
	row[colStatus-1] = t.Status.Label()
	row[colExecutor-1] = c.executorName(t.Executor)
	row[colTakenAt-1] = formatOptional(t.TakenAt)
	row[colCompleteUntil-1] = formatOptional(t.CompleteUntil)
	row[colCompletedAt-1] = formatOptional(t.CompletedAt)
	row[colComments-1] = EncodeComments(t.Comments)
	if t.Blocked {
		row[colBlocked-1] = "TRUE"
	} else {
		row[colBlocked-1] = "FALSE"
	}
	return row
}

func (c Codec) executorName(id int64) string {
	if id == 0 {
		return ""
	}
	if c.Names != nil {
		if name, ok := c.Names.NameByID(id); ok {
			return name
		}
	}
	return strconv.FormatInt(id, 10)
}

// Decode parses a full row into a Task. Cells that fail to parse yield a
// *ParseError naming the offending column.
func (c Codec) Decode(row []string) (*Task, error) {
	if len(row) != SheetWidth {
		return nil, &ParseError{
			Column: "row",
			Value:  strings.Join(row, "|"),
			Err:    fmt.Errorf("want %d cells, got %d", SheetWidth, len(row)),
		}
	}
	t := &Task{}
	var err error
	if t.ID, err = strconv.Atoi(row[colID-1]); err != nil {
		return nil, &ParseError{Column: "id", Value: row[colID-1], Err: err}
	}
	if t.Room, err = strconv.Atoi(row[colRoom-1]); err != nil {
		return nil, &ParseError{Column: "room", Value: row[colRoom-1], Err: err}
	}
	t.Text = row[colText-1]
	if t.CreatedAt, err = time.Parse(TimeLayout, row[colCreatedAt-1]); err != nil {
		return nil, &ParseError{Column: "created_at", Value: row[colCreatedAt-1], Err: err}
	}
	t.Author = row[colAuthor-1]
	if t.Priority, err = strconv.Atoi(row[colPriority-1]); err != nil {
		return nil, &ParseError{Column: "priority", Value: row[colPriority-1], Err: err}
	}
	if t.Status, err = ParseStatus(row[colStatus-1]); err != nil {
		return nil, &ParseError{Column: "status", Value: row[colStatus-1], Err: err}
	}
	if t.Executor, err = c.executorID(row[colExecutor-1]); err != nil {
		return nil, &ParseError{Column: "executor", Value: row[colExecutor-1], Err: err}
	}
	if t.TakenAt, err = parseOptional(row[colTakenAt-1]); err != nil {
		return nil, &ParseError{Column: "taken_at", Value: row[colTakenAt-1], Err: err}
	}
	if t.CompleteUntil, err = parseOptional(row[colCompleteUntil-1]); err != nil {
		return nil, &ParseError{Column: "complete_until", Value: row[colCompleteUntil-1], Err: err}
	}
	if t.CompletedAt, err = parseOptional(row[colCompletedAt-1]); err != nil {
		return nil, &ParseError{Column: "completed_at", Value: row[colCompletedAt-1], Err: err}
	}
	t.Comments = ParseComments(row[colComments-1])
	switch strings.ToUpper(row[colBlocked-1]) {
	case "", "FALSE", "0":
		t.Blocked = false
	case "TRUE", "1":
		t.Blocked = true
	default:
		return nil, &ParseError{
			Column: "is_blocked",
			Value:  row[colBlocked-1],
			Err:    fmt.Errorf("not a boolean"),
		}
	}
	return t, nil
}

func (c Codec) executorID(cell string) (int64, error) {
	if cell == "" {
		return 0, nil
	}
	if c.Names != nil {
		if id, ok := c.Names.IDByName(cell); ok {
			return id, nil
		}
	}
	return strconv.ParseInt(cell, 10, 64)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(TimeLayout)
}

func parseOptional(cell string) (*time.Time, error) {
	if cell == "" {
		return nil, nil
	}
	at, err := time.Parse(TimeLayout, cell)
	if err != nil {
		return nil, err
	}
	return &at, nil
}
