package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ruby/userauth-service/internal/core/domain"
	"github.com/ruby/userauth-service/internal/infrastructure/clock"
	"github.com/ruby/userauth-service/internal/infrastructure/security"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users     map[string]*domain.User
	findErr   error
	createErr error
	nextID    int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]domain.Role(nil), u.Roles...)
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserAlreadyExists
	}
	r.nextID++
	copy := cloneUser(user)
	copy.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[copy.Email] = cloneUser(copy)
	return copy, nil
}

type stubRoleRepo struct {
	roles map[string]*domain.Role
	err   error
	calls int
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{roles: make(map[string]*domain.Role)}
}

func (r *stubRoleRepo) GetOrCreate(_ context.Context, name string) (*domain.Role, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if role, ok := r.roles[name]; ok {
		out := *role
		return &out, nil
	}
	role := &domain.Role{ID: "role-" + name, Name: name}
	r.roles[name] = role
	out := *role
	return &out, nil
}

type stubSessionRepo struct {
	byToken   map[string]*domain.Session
	created   int
	updates   []string // session ids passed to UpdateState
	createErr error
	findErr   error
	updateErr error
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{byToken: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Create(_ context.Context, s *domain.Session) (*domain.Session, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created++
	copy := *s
	copy.ID = fmt.Sprintf("session-%d", r.created)
	stored := copy
	r.byToken[s.Token] = &stored
	return &copy, nil
}

func (r *stubSessionRepo) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.byToken[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copy := *s
	return &copy, nil
}

func (r *stubSessionRepo) UpdateState(_ context.Context, id string, state domain.State) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, s := range r.byToken {
		if s.ID == id {
			s.State = state
			r.updates = append(r.updates, id)
			return nil
		}
	}
	return domain.ErrSessionNotFound
}

func (r *stubSessionRepo) stateOf(token string) domain.State {
	return r.byToken[token].State
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *recordingAudit) Enqueue(e domain.AuthEvent) {
	a.mu.Lock()
	a.events = append(a.events, e)
	a.mu.Unlock()
}

func (a *recordingAudit) types() []domain.AuthEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}

// ---------------------------------------------------------------------------
// Helper: build a service around stubs, a real codec and a fake clock.
// ---------------------------------------------------------------------------

type fixture struct {
	svc      *AuthService
	users    *stubUserRepo
	roles    *stubRoleRepo
	sessions *stubSessionRepo
	audit    *recordingAudit
	clock    *clock.Fake
	codec    *security.JWTCodec
}

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newCodec(t *testing.T) *security.JWTCodec {
	t.Helper()
	key, err := security.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	codec, err := security.NewJWTCodec(key, security.DefaultIssuer)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    newStubUserRepo(),
		roles:    newStubRoleRepo(),
		sessions: newStubSessionRepo(),
		audit:    &recordingAudit{},
		clock:    clock.NewFake(testEpoch),
		codec:    newCodec(t),
	}
	f.svc = NewAuthService(AuthDeps{
		Users:     f.users,
		Roles:     f.roles,
		Hasher:    security.NewBcryptHasher(bcrypt.MinCost),
		Issuer:    NewTokenIssuer(f.codec, f.sessions, f.clock, DefaultTokenTTL),
		Validator: NewTokenValidator(f.codec, f.sessions, f.clock, f.audit, zerolog.Nop()),
		Clock:     f.clock,
		Audit:     f.audit,
		Log:       zerolog.Nop(),
	})
	return f
}

func (f *fixture) signupAndLogin(t *testing.T, email, password string) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, email, "Test", password); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	user, token, err := f.svc.Login(ctx, email, password)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return user, token
}

// brokenHasher fails every Hash call and records the hashes Verify sees.
type brokenHasher struct {
	mu       sync.Mutex
	verified []string
}

func (h *brokenHasher) Hash(string) (string, error) {
	return "", fmt.Errorf("entropy unavailable")
}

func (h *brokenHasher) Verify(_, hash string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verified = append(h.verified, hash)
	return false
}
