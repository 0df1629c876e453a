package auth

import "time"

// Session is a server-side record binding a user to an opaque token.
// The token doubles as the primary key; there is nothing self-contained
// about it, so revocation takes effect on the next lookup.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ResetToken is a one-time password reset credential.
type ResetToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
