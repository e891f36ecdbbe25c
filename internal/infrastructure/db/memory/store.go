// Package memory is an in-process implementation of the repositories. Every
// entity lives in an id-indexed map; users reference roles by id and sessions
// reference users by id. Uniqueness of user email, role name and session
// token is enforced under the store mutex.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ruby/userauth-service/internal/core/domain"
)

type userRecord struct {
	user    domain.User // Roles left empty; resolved from roleIDs on read
	roleIDs []string
}

// Store holds all entities. The zero value is not usable; use NewStore.
type Store struct {
	mu sync.RWMutex

	users       map[string]*userRecord
	userByEmail map[string]string

	roles      map[string]*domain.Role
	roleByName map[string]string

	sessions       map[string]*domain.Session
	sessionByToken map[string]string

	events []domain.AuthEvent
}

func NewStore() *Store {
	return &Store{
		users:          make(map[string]*userRecord),
		userByEmail:    make(map[string]string),
		roles:          make(map[string]*domain.Role),
		roleByName:     make(map[string]string),
		sessions:       make(map[string]*domain.Session),
		sessionByToken: make(map[string]string),
	}
}

// Ping always succeeds; it lets the store take part in readiness checks.
func (s *Store) Ping(context.Context) error { return nil }

// SessionCount returns the number of persisted sessions.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Events returns a copy of the recorded audit trail.
func (s *Store) Events() []domain.AuthEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuthEvent, len(s.events))
	copy(out, s.events)
	return out
}

func newID() string { return uuid.NewString() }

// resolveUser must be called with s.mu held.
func (s *Store) resolveUser(rec *userRecord) *domain.User {
	u := rec.user
	u.Roles = make([]domain.Role, 0, len(rec.roleIDs))
	for _, id := range rec.roleIDs {
		if r, ok := s.roles[id]; ok {
			u.Roles = append(u.Roles, *r)
		}
	}
	return &u
}
