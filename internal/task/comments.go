package task

import (
	"strings"
	"time"
)

// Comment is one timestamped remark on a task.
type Comment struct {
	At   time.Time
	Text string
}

func (c Comment) String() string {
	return "[" + c.At.Format(TimeLayout) + "] " + c.Text
}

// EncodeComments serializes comments into the newline-joined cell form:
// one "[02.01.2006 15:04] text" line per comment.
func EncodeComments(comments []Comment) string {
	lines := make([]string, len(comments))
	for i, c := range comments {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

// ParseComments decodes the cell form back into comments. Each line splits
// on the first "]": the timestamp sits before it, the text after. Comment
// text containing "]" survives; a "]" inside the bracketed prefix would
// not, which mirrors how the cell has always been written.
func ParseComments(cell string) []Comment {
	if cell == "" {
		return nil
	}
	var out []Comment
	for _, line := range strings.Split(cell, "\n") {
		if line == "" {
			continue
		}
		head, rest, found := strings.Cut(line, "]")
		if !found {
			out = append(out, Comment{Text: line})
			continue
		}
		at, err := time.Parse(TimeLayout, strings.TrimPrefix(head, "["))
		text := strings.TrimPrefix(rest, " ")
		if err != nil {
			out = append(out, Comment{Text: line})
			continue
		}
		out = append(out, Comment{At: at, Text: text})
	}
	return out
}

// AppendEncoded appends a comment's cell form to an existing cell value.
func AppendEncoded(cell string, c Comment) string {
	if cell == "" {
		return c.String()
	}
	return cell + "\n" + c.String()
}
