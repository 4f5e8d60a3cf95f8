// Package directory holds the user registry: who may talk to the bot and in
// which role. The registry is loaded once at startup from the user sheet and
// mutated only on registration approval; the sheet row is the durable record,
// the registry is the hot copy every dialogue consults.
package directory

import (
	"fmt"
	"sort"
	"sync"
)

// Role is a user's permission level.
type Role string

const (
	RoleTeacher    Role = "Teacher"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
)

// ParseRole validates a stored role label.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleTeacher, RoleAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("directory: unknown role %q", s)
}

// IsAdmin reports whether the role grants admin capabilities.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is a directory entry for a person.
type User struct {
	TelegramID int64
	FullName   string // display name used in the task table
	Username   string // @handle, may be empty
	Role       Role
	History    string // append-only audit log of role grants
}

// Registry is the in-memory user directory. Reads dominate; writes happen
// only on registration approval and must not lose concurrent updates.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]User
}

// NewRegistry creates a Registry seeded with the given users.
func NewRegistry(users []User) *Registry {
	m := make(map[int64]User, len(users))
	for _, u := range users {
		m[u.TelegramID] = u
	}
	return &Registry{users: m}
}

// Get returns the user with the given telegram ID.
func (r *Registry) Get(id int64) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return u, ok
}

// Add inserts or replaces a user.
func (r *Registry) Add(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.TelegramID] = u
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Admins returns all users whose role grants admin capabilities, ordered by
// telegram ID for deterministic fan-out.
func (r *Registry) Admins() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []User
	for _, u := range r.users {
		if u.Role.IsAdmin() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out
}

// NameByID resolves a telegram ID to the user's display name. Implements the
// executor mapping consulted by the task row codec.
func (r *Registry) NameByID(id int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return "", false
	}
	return u.FullName, true
}

// IDByName resolves a display name back to a telegram ID.
func (r *Registry) IDByName(name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, u := range r.users {
		if u.FullName == name {
			return id, true
		}
	}
	return 0, false
}
