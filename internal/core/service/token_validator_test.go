package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruby/userauth-service/internal/core/domain"
)

func TestTokenValidator_FreshToken(t *testing.T) {
	f := newFixture(t)
	_, token := f.signupAndLogin(t, "a@x.com", "pw1")

	ok, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil || !ok {
		t.Fatalf("expected valid token, got %v %v", ok, err)
	}
	if len(f.sessions.updates) != 0 {
		t.Fatalf("validation of a good token must not write")
	}
}

func TestTokenValidator_UnknownToken(t *testing.T) {
	f := newFixture(t)
	f.signupAndLogin(t, "a@x.com", "pw1")

	// Correctly signed, never issued.
	forged, err := f.codec.Encode(domain.Claims{
		Subject:   "user-1",
		IssuedAt:  testEpoch,
		ExpiresAt: testEpoch.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for _, tok := range []string{forged, "not-a-token", ""} {
		ok, err := f.svc.ValidateToken(context.Background(), tok)
		if err != nil || ok {
			t.Fatalf("expected false for %q, got %v %v", tok, ok, err)
		}
	}
	if len(f.sessions.updates) != 0 {
		t.Fatalf("unknown tokens must not cause writes, got %v", f.sessions.updates)
	}
}

func TestTokenValidator_TamperedTokenDeactivatesSession(t *testing.T) {
	f := newFixture(t)
	_, token := f.signupAndLogin(t, "a@x.com", "pw1")
	_, other, err := f.svc.Login(context.Background(), "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	// Splice the signature of one token onto the payload of another and
	// store a session row for it, as if the row held a damaged value.
	a, b := strings.Split(token, "."), strings.Split(other, ".")
	tampered := a[0] + "." + a[1] + "." + b[2]
	sess, err := f.sessions.Create(context.Background(), &domain.Session{
		Token: tampered, UserID: "user-1", State: domain.StateActive,
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	ok, err := f.svc.ValidateToken(context.Background(), tampered)
	if err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	if f.sessions.stateOf(tampered) != domain.StateInactive {
		t.Fatalf("expected tampered session to be INACTIVE")
	}
	if len(f.sessions.updates) != 1 || f.sessions.updates[0] != sess.ID {
		t.Fatalf("expected exactly one update for %s, got %v", sess.ID, f.sessions.updates)
	}
	if f.sessions.stateOf(token) != domain.StateActive {
		t.Fatalf("the genuine session must be untouched")
	}
}

func TestTokenValidator_WrongKeyDeactivatesSession(t *testing.T) {
	f := newFixture(t)
	_, token := f.signupAndLogin(t, "a@x.com", "pw1")

	// A process restart with a fresh key: same sessions, different codec.
	validator := NewTokenValidator(newCodec(t), f.sessions, f.clock, f.audit, zerolog.Nop())

	ok, err := validator.Validate(context.Background(), token)
	if err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	if f.sessions.stateOf(token) != domain.StateInactive {
		t.Fatalf("expected session to be INACTIVE")
	}
}

func TestTokenValidator_Expiry(t *testing.T) {
	f := newFixture(t)
	_, token := f.signupAndLogin(t, "a@x.com", "pw1")
	ctx := context.Background()

	// Exactly at expiry the token is still valid.
	f.clock.Advance(DefaultTokenTTL)
	if ok, err := f.svc.ValidateToken(ctx, token); err != nil || !ok {
		t.Fatalf("expected valid at expiry instant, got %v %v", ok, err)
	}

	f.clock.Advance(time.Second)
	ok, err := f.svc.ValidateToken(ctx, token)
	if err != nil || ok {
		t.Fatalf("expected false after expiry, got %v %v", ok, err)
	}
	if f.sessions.stateOf(token) != domain.StateInactive {
		t.Fatalf("expected INACTIVE after expiry")
	}

	types := f.audit.types()
	if types[len(types)-1] != domain.EventSessionDeactivated {
		t.Fatalf("expected session_deactivated audit event, got %v", types)
	}

	// Second call: still false, still INACTIVE, no error and no extra write.
	ok, err = f.svc.ValidateToken(ctx, token)
	if err != nil || ok {
		t.Fatalf("expected false on repeat, got %v %v", ok, err)
	}
	if f.sessions.stateOf(token) != domain.StateInactive {
		t.Fatalf("expected session to remain INACTIVE")
	}
	if len(f.sessions.updates) != 1 {
		t.Fatalf("expected a single state write, got %d", len(f.sessions.updates))
	}
}

func TestTokenValidator_ShortWindow(t *testing.T) {
	f := newFixture(t)
	f.svc.issuer = NewTokenIssuer(f.codec, f.sessions, f.clock, 2*time.Second)
	_, token := f.signupAndLogin(t, "a@x.com", "pw1")

	f.clock.Advance(3 * time.Second)
	if ok, _ := f.svc.ValidateToken(context.Background(), token); ok {
		t.Fatalf("expected short-lived token to expire")
	}
}

func TestTokenValidator_InactiveSessionRejected(t *testing.T) {
	f := newFixture(t)
	_, token := f.signupAndLogin(t, "a@x.com", "pw1")
	f.sessions.byToken[token].State = domain.StateInactive

	ok, err := f.svc.ValidateToken(context.Background(), token)
	if err != nil || ok {
		t.Fatalf("expected false for inactive session, got %v %v", ok, err)
	}
	if len(f.sessions.updates) != 0 {
		t.Fatalf("an already inactive session must not be rewritten")
	}
}

func TestTokenValidator_StorageErrorsPropagate(t *testing.T) {
	dbErr := errors.New("db unavailable")

	f := newFixture(t)
	_, token := f.signupAndLogin(t, "a@x.com", "pw1")
	f.sessions.findErr = dbErr
	if ok, err := f.svc.ValidateToken(context.Background(), token); ok || !errors.Is(err, dbErr) {
		t.Fatalf("expected lookup error, got %v %v", ok, err)
	}

	f = newFixture(t)
	_, token = f.signupAndLogin(t, "a@x.com", "pw1")
	f.clock.Advance(DefaultTokenTTL + time.Minute)
	f.sessions.updateErr = dbErr
	if ok, err := f.svc.ValidateToken(context.Background(), token); ok || !errors.Is(err, dbErr) {
		t.Fatalf("expected update error, got %v %v", ok, err)
	}
}
