package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// UserRepository implements ports.UserRepository on a Store.
type UserRepository struct{ s *Store }

func NewUserRepository(s *Store) *UserRepository { return &UserRepository{s: s} }

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.userByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.s.resolveUser(r.s.users[id]), nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.userByEmail[user.Email]; taken {
		return nil, domain.ErrUserAlreadyExists
	}

	rec := &userRecord{user: *user}
	rec.user.ID = newID()
	rec.user.Roles = nil
	for _, role := range user.Roles {
		if _, ok := r.s.roles[role.ID]; !ok {
			return nil, fmt.Errorf("create user: %w: %s", domain.ErrRoleNotFound, role.Name)
		}
		rec.roleIDs = append(rec.roleIDs, role.ID)
	}

	r.s.users[rec.user.ID] = rec
	r.s.userByEmail[rec.user.Email] = rec.user.ID
	return r.s.resolveUser(rec), nil
}

// RoleRepository implements ports.RoleRepository on a Store.
type RoleRepository struct{ s *Store }

func NewRoleRepository(s *Store) *RoleRepository { return &RoleRepository{s: s} }

func (r *RoleRepository) GetOrCreate(_ context.Context, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, ok := r.s.roleByName[name]; ok {
		role := *r.s.roles[id]
		return &role, nil
	}

	role := &domain.Role{ID: newID(), Name: name}
	r.s.roles[role.ID] = role
	r.s.roleByName[name] = role.ID
	out := *role
	return &out, nil
}

// SessionRepository implements ports.SessionRepository on a Store.
type SessionRepository struct{ s *Store }

func NewSessionRepository(s *Store) *SessionRepository { return &SessionRepository{s: s} }

func (r *SessionRepository) Create(_ context.Context, session *domain.Session) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.sessionByToken[session.Token]; taken {
		return nil, fmt.Errorf("create session: duplicate token")
	}
	if _, ok := r.s.users[session.UserID]; !ok {
		return nil, fmt.Errorf("create session: %w", domain.ErrUserNotFound)
	}

	stored := *session
	stored.ID = newID()
	r.s.sessions[stored.ID] = &stored
	r.s.sessionByToken[stored.Token] = stored.ID

	out := stored
	return &out, nil
}

func (r *SessionRepository) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.sessionByToken[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := *r.s.sessions[id]
	return &out, nil
}

func (r *SessionRepository) UpdateState(_ context.Context, id string, state domain.State) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.State = state
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// AuditRepository implements ports.AuditRepository on a Store.
type AuditRepository struct{ s *Store }

func NewAuditRepository(s *Store) *AuditRepository { return &AuditRepository{s: s} }

func (r *AuditRepository) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, *event)
	return nil
}
