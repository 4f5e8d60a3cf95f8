package directory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akimovd/deskbot/internal/sheets"
)

func seedRegistry() *Registry {
	return NewRegistry([]User{
		{TelegramID: 100, FullName: "Akimov D.", Role: RoleSuperAdmin},
		{TelegramID: 200, FullName: "Globin N.", Role: RoleAdmin},
		{TelegramID: 300, FullName: "Petrova A.", Role: RoleTeacher},
	})
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"Teacher", "Admin", "SuperAdmin"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q): %v", s, err)
		}
	}
	if _, err := ParseRole("Janitor"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRegistry_Admins(t *testing.T) {
	admins := seedRegistry().Admins()
	if len(admins) != 2 {
		t.Fatalf("admins = %d, want 2", len(admins))
	}
	// Deterministic order by telegram ID.
	if admins[0].TelegramID != 100 || admins[1].TelegramID != 200 {
		t.Errorf("admin order = %d,%d", admins[0].TelegramID, admins[1].TelegramID)
	}
}

func TestRegistry_NameMapping(t *testing.T) {
	r := seedRegistry()

	name, ok := r.NameByID(200)
	if !ok || name != "Globin N." {
		t.Fatalf("NameByID = %q,%v", name, ok)
	}
	id, ok := r.IDByName("Globin N.")
	if !ok || id != 200 {
		t.Fatalf("IDByName = %d,%v", id, ok)
	}
	if _, ok := r.IDByName("Nobody"); ok {
		t.Error("IDByName should miss for unknown name")
	}
}

func TestRegistry_ConcurrentAdd(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			r.Add(User{TelegramID: id, FullName: "u", Role: RoleTeacher})
		}(int64(i))
	}
	wg.Wait()
	if r.Len() != 50 {
		t.Fatalf("len = %d, want 50", r.Len())
	}
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

func TestStore_CommitWritesAuditEntry(t *testing.T) {
	ms := sheets.NewMemoryStore(UserSheetHeader())
	store, err := NewStore(ms)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	at := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	u := User{TelegramID: 555, FullName: "Ivanov I.", Username: "@ivanov", Role: RoleTeacher}
	committed, err := store.Commit(context.Background(), u, "Akimov D.", at)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	want := "[28.08.2026 10:30] Akimov D. granted role Teacher"
	if committed.History != want {
		t.Errorf("history = %q, want %q", committed.History, want)
	}

	users, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(users) != 1 || users[0].TelegramID != 555 {
		t.Fatalf("loaded = %+v", users)
	}
	if !strings.Contains(users[0].History, "granted role Teacher") {
		t.Errorf("round-tripped history = %q", users[0].History)
	}
}

func TestStore_LoadAllSkipsBadRows(t *testing.T) {
	ms := sheets.NewMemoryStore(UserSheetHeader())
	ctx := context.Background()
	ms.Append(ctx, []string{"not-a-number", "X", "", "Teacher", ""})
	ms.Append(ctx, []string{"42", "Good U.", "", "Admin", ""})
	ms.Append(ctx, []string{"43", "Bad Role", "", "Janitor", ""})

	store, _ := NewStore(ms)
	users, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(users) != 1 || users[0].TelegramID != 42 {
		t.Fatalf("users = %+v, want only id 42", users)
	}
}

func TestDecodeUser_HandleEqualsFullname(t *testing.T) {
	u, err := decodeUser([]string{"7", "@same", "@same", "Teacher", ""})
	if err != nil {
		t.Fatalf("decodeUser: %v", err)
	}
	if u.Username != "" {
		t.Errorf("username = %q, want empty", u.Username)
	}
}
