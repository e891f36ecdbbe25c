package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruby/userauth-service/internal/core/domain"
	"github.com/ruby/userauth-service/internal/core/ports"
)

// Login failure reasons recorded in the audit trail.
const (
	ReasonUnknownEmail      = "unknown_email"
	ReasonIncorrectPassword = "incorrect_password"
)

// maxPasswordBytes is bcrypt's input limit, counted in bytes.
const maxPasswordBytes = 72

// dummyPassword is hashed at construction and compared against when the
// email is unknown, so both login failures cost one bcrypt comparison.
const dummyPassword = "userauth-timing-equaliser"

// fallbackTimingHash is a well-formed cost-10 bcrypt hash used when hashing
// dummyPassword fails. Comparing against it still runs the full key schedule.
const fallbackTimingHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Users       ports.UserRepository
	Roles       ports.RoleRepository
	Hasher      ports.PasswordHasher
	Issuer      *TokenIssuer
	Validator   *TokenValidator
	Clock       ports.Clock
	Audit       ports.AuditSink // optional
	Log         zerolog.Logger
	DefaultRole string // defaults to domain.DefaultRole
}

// AuthService implements signup, login and token validation.
type AuthService struct {
	users       ports.UserRepository
	roles       ports.RoleRepository
	hasher      ports.PasswordHasher
	issuer      *TokenIssuer
	validator   *TokenValidator
	clock       ports.Clock
	audit       ports.AuditSink
	log         zerolog.Logger
	defaultRole string

	dummyHash string
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(d AuthDeps) *AuthService {
	if d.DefaultRole == "" {
		d.DefaultRole = domain.DefaultRole
	}
	if d.Audit == nil {
		d.Audit = discardAudit{}
	}
	dummyHash, err := d.Hasher.Hash(dummyPassword)
	if err != nil {
		d.Log.Warn().Err(err).Msg("timing hash unavailable, using fallback")
		dummyHash = fallbackTimingHash
	}
	return &AuthService{
		users:       d.Users,
		roles:       d.Roles,
		hasher:      d.Hasher,
		issuer:      d.Issuer,
		validator:   d.Validator,
		clock:       d.Clock,
		audit:       d.Audit,
		log:         d.Log,
		defaultRole: d.DefaultRole,
		dummyHash:   dummyHash,
	}
}

// Signup registers a new ACTIVE account holding the default role.
func (s *AuthService) Signup(ctx context.Context, email, name, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidInput
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password longer than %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("signup: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	role, err := s.roles.GetOrCreate(ctx, s.defaultRole)
	if err != nil {
		return nil, fmt.Errorf("signup: role %s: %w", s.defaultRole, err)
	}

	now := s.clock.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Roles:        []domain.Role{*role},
		State:        domain.StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// A concurrent signup may have won between the lookup and the insert.
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	s.audit.Enqueue(domain.AuthEvent{
		Type:       domain.EventSignup,
		UserID:     created.ID,
		Email:      created.Email,
		OccurredAt: now,
	})

	return created, nil
}

// Login verifies credentials and issues a session-backed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.hasher.Verify(password, s.dummyHash)
		s.loginFailed(email, "", ReasonUnknownEmail)
		return nil, "", domain.ErrUserNotRegistered
	}
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(email, user.ID, ReasonIncorrectPassword)
		return nil, "", domain.ErrIncorrectPassword
	}

	token, session, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("session_id", session.ID).
		Msg("session issued")
	s.audit.Enqueue(domain.AuthEvent{
		Type:       domain.EventLoginSucceeded,
		UserID:     user.ID,
		Email:      user.Email,
		SessionID:  session.ID,
		OccurredAt: session.CreatedAt,
	})

	return user, token, nil
}

// ValidateToken delegates to the TokenValidator.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (bool, error) {
	return s.validator.Validate(ctx, token)
}

func (s *AuthService) loginFailed(email, userID, reason string) {
	s.log.Debug().Str("reason", reason).Msg("login rejected")
	s.audit.Enqueue(domain.AuthEvent{
		Type:       domain.EventLoginFailed,
		UserID:     userID,
		Email:      email,
		Reason:     reason,
		OccurredAt: s.clock.Now().UTC(),
	})
}
