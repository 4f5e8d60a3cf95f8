package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/akimovd/deskbot/internal/task"
)

// Callback payload prefixes. Task browsing and user administration keep
// separate namespaces so a stale keyboard from one surface can never drive
// the other.
const (
	taskPrefix = "tasks_"
	userPrefix = "users_"
)

// taskCB builds a task callback payload: tasks_<verb>_<id>.
func taskCB(verb string, id int) string {
	return fmt.Sprintf("%s%s_%d", taskPrefix, verb, id)
}

// parseTaskCB splits a task callback payload into verb and id.
func parseTaskCB(data string) (verb string, id int, ok bool) {
	rest, found := strings.CutPrefix(data, taskPrefix)
	if !found {
		return "", 0, false
	}
	verb, idStr, found := cutLast(rest)
	if !found {
		return "", 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return "", 0, false
	}
	return verb, id, true
}

// userCB builds a user callback payload: users_<verb>_<telegram id>.
func userCB(verb string, id int64) string {
	return fmt.Sprintf("%s%s_%d", userPrefix, verb, id)
}

func parseUserCB(data string) (verb string, id int64, ok bool) {
	rest, found := strings.CutPrefix(data, userPrefix)
	if !found {
		return "", 0, false
	}
	verb, idStr, found := cutLast(rest)
	if !found {
		return "", 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return verb, id, true
}

// cutLast splits on the last underscore, so verbs may themselves contain
// underscores.
func cutLast(s string) (before, after string, found bool) {
	i := strings.LastIndex(s, "_")
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// formatCard renders one task for chat display.
func formatCard(t *task.Task, names task.NameMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task #%d — room %d\n", t.ID, t.Room)
	fmt.Fprintf(&b, "%s\n\n", t.Text)
	fmt.Fprintf(&b, "Status: %s\n", t.Status.Label())
	fmt.Fprintf(&b, "Priority: %d\n", t.Priority)
	fmt.Fprintf(&b, "Created: %s by %s\n", t.CreatedAt.Format(task.TimeLayout), t.Author)
	if t.Executor != 0 {
		name := strconv.FormatInt(t.Executor, 10)
		if names != nil {
			if n, ok := names.NameByID(t.Executor); ok {
				name = n
			}
		}
		fmt.Fprintf(&b, "Executor: %s\n", name)
	}
	if t.CompleteUntil != nil {
		fmt.Fprintf(&b, "Due: %s\n", t.CompleteUntil.Format(task.TimeLayout))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(&b, "Closed: %s\n", t.CompletedAt.Format(task.TimeLayout))
	}
	if len(t.Comments) > 0 {
		b.WriteString("\nComments:\n")
		for _, c := range t.Comments {
			fmt.Fprintf(&b, "%s\n", c.String())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatDigest renders the open-task summary for the daily digest.
func formatDigest(open []*task.Task) string {
	if len(open) == 0 {
		return "No open tasks."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d open task(s):\n", len(open))
	for _, t := range open {
		fmt.Fprintf(&b, "#%d room %d [%s] %s\n", t.ID, t.Room, t.Status.Label(), firstLine(t.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
