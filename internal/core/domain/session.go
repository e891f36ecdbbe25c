package domain

import (
	"errors"
	"time"
)

// State is the lifecycle state shared by users and sessions.
type State string

const (
	StateActive   State = "ACTIVE"
	StateInactive State = "INACTIVE"
)

// validTransitions defines the allowed state machine transitions.
// INACTIVE has no outgoing edge.
var validTransitions = map[State][]State{
	StateActive: {StateInactive},
}

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrTokenInvalid      = errors.New("token invalid")
)

// CanTransitionTo reports whether a transition from current state to next is valid.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is the server-side record of an issued token.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deactivate moves the session to INACTIVE. Deactivating an already inactive
// session is a no-op and reports false.
func (s *Session) Deactivate(now time.Time) bool {
	if !s.State.CanTransitionTo(StateInactive) {
		return false
	}
	s.State = StateInactive
	s.UpdatedAt = now
	return true
}

// Claims is the payload carried inside a token.
type Claims struct {
	ID        string
	Subject   string
	Issuer    string
	Scope     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether now is strictly after the expiry instant.
func (c Claims) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
