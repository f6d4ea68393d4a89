package models

import "time"

// Credentials is the usual login form. Login accepts any JSON-encodable
// value; this type covers the common case.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// Session is persisted at login.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// SessionInfo summarizes the current authentication state. It never carries
// the token itself.
type SessionInfo struct {
	Authenticated bool       `json:"authenticated"`
	SessionID     string     `json:"session_id,omitempty"`
	User          *User      `json:"user,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
}
