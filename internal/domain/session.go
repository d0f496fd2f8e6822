package domain

import "time"

// SessionUser is the identity carried inside a shared session.
type SessionUser struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Session is the credential bundle shared across the suite's applications.
// It is held by clients, never persisted server-side; the server only sees
// it transiently inside handoff codes.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         SessionUser `json:"user"`
	ExpiresAt    time.Time   `json:"expires_at"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ExpiredAt reports whether the session is expired at the given instant.
func (s Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HandoffCode is a single-use, short-lived server-side voucher that carries a
// session between applications instead of embedding the token pair in a URL.
type HandoffCode struct {
	Code      string
	Session   Session
	ExpiresAt time.Time
	CreatedAt time.Time
}
