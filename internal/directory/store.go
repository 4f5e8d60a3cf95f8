package directory

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/akimovd/deskbot/internal/sheets"
)

// User sheet column order (1-based): telegram_id, fullname, username, role,
// history. Fixed for compatibility with existing data.
const (
	colTelegramID = 1
	colFullName   = 2
	colUsername   = 3
	colRole       = 4
	colHistory    = 5

	userSheetWidth = 5
)

// TimeLayout is the timestamp format used in audit history entries,
// identical to the task table's.
const TimeLayout = "02.01.2006 15:04"

// Store persists user records to the user sheet.
type Store struct {
	rows sheets.RowStore
}

// NewStore creates a Store over the user sheet.
func NewStore(rows sheets.RowStore) (*Store, error) {
	if rows == nil {
		return nil, fmt.Errorf("directory: row store is required")
	}
	return &Store{rows: rows}, nil
}

// LoadAll reads every user row from the sheet. Rows that fail to parse are
// skipped with a warning so one bad row cannot take the bot down.
func (s *Store) LoadAll(ctx context.Context) ([]User, error) {
	rows, err := s.rows.Rows(ctx, 200)
	if err != nil {
		return nil, fmt.Errorf("directory: load users: %w", err)
	}
	var users []User
	for i, row := range rows {
		u, err := decodeUser(row)
		if err != nil {
			log.Printf("directory: skipping user row %d: %v", i+2, err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// Commit appends an approved user to the sheet with an audit history entry
// naming the approver. The returned user carries the history entry.
func (s *Store) Commit(ctx context.Context, u User, approvedBy string, at time.Time) (User, error) {
	entry := fmt.Sprintf("[%s] %s granted role %s", at.Format(TimeLayout), approvedBy, u.Role)
	if u.History != "" {
		entry = u.History + "\n" + entry
	}
	u.History = entry

	row := []string{
		strconv.FormatInt(u.TelegramID, 10),
		u.FullName,
		u.Username,
		string(u.Role),
		u.History,
	}
	if err := s.rows.Append(ctx, row); err != nil {
		return u, fmt.Errorf("directory: commit user %d: %w", u.TelegramID, err)
	}
	return u, nil
}

func decodeUser(row []string) (User, error) {
	if len(row) < colRole {
		return User{}, fmt.Errorf("directory: user row has %d columns, want at least %d", len(row), colRole)
	}
	id, err := strconv.ParseInt(row[colTelegramID-1], 10, 64)
	if err != nil {
		return User{}, fmt.Errorf("directory: telegram id %q: %w", row[colTelegramID-1], err)
	}
	role, err := ParseRole(row[colRole-1])
	if err != nil {
		return User{}, err
	}
	u := User{
		TelegramID: id,
		FullName:   row[colFullName-1],
		Username:   row[colUsername-1],
		Role:       role,
	}
	if len(row) >= colHistory {
		u.History = row[colHistory-1]
	}
	// A fullname identical to the handle means the person never set a
	// proper name; keep the handle only.
	if u.FullName == u.Username {
		u.Username = ""
	}
	return u, nil
}

// UserSheetHeader returns the header row of the user sheet, used when
// bootstrapping an empty dev-mode store.
func UserSheetHeader() []string {
	return []string{"telegram_id", "fullname", "username", "role", "history"}
}
