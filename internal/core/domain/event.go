package domain

import "time"

// AuthEventType names an entry in the audit trail.
type AuthEventType string

const (
	EventSignup             AuthEventType = "signup"
	EventLoginSucceeded     AuthEventType = "login_succeeded"
	EventLoginFailed        AuthEventType = "login_failed"
	EventSessionDeactivated AuthEventType = "session_deactivated"
)

// AuthEvent records something that happened to an account or session.
type AuthEvent struct {
	Type       AuthEventType
	UserID     string // empty when the account is unknown
	Email      string
	SessionID  string // optional
	Reason     string // optional
	OccurredAt time.Time
}

// AccountKey returns the value events are ordered by: the user id when known,
// otherwise the email.
func (e AuthEvent) AccountKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Email
}
