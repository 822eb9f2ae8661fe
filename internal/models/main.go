// Package models defines the core data structures for users, sessions and
// the gate views rendered by clients.
package models

import "time"

// User represents a registered user of the protected area.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the name chosen at registration.
	Username string `json:"username"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a server-side record backing a nilavanti_token cookie.
type Session struct {
	// ID is the opaque session identifier carried in the signed token.
	ID string `json:"id"`
	// UserID is empty when the session was opened with the master secret.
	UserID string `json:"user_id,omitempty"`
	// Master reports whether the master secret opened the session.
	Master bool `json:"master"`
	// RemoteAddr and UserAgent describe the client that logged in.
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginAttempt is one row of the login audit log.
type LoginAttempt struct {
	Username   string
	RemoteAddr string
	Success    bool
	CreatedAt  time.Time
}

// View names what a client should render for the gate.
type View string

const (
	// ViewLoginForm asks for the secret.
	ViewLoginForm View = "login_form"
	// ViewRegisterForm is the registration form.
	ViewRegisterForm View = "register_form"
	// ViewVideo plays the reveal sequence before the protected area.
	ViewVideo View = "video"
	// ViewProtected is the protected content itself.
	ViewProtected View = "protected"
)

const (
	// GateRoute is where the gate is mounted in the web application.
	GateRoute = "/projects/nilavanti"
	// ProtectedRoute is the default destination after a reveal.
	ProtectedRoute = "/projects/nilavanti/main"
)

// MountState is what the gate reports when a client mounts it.
type MountState struct {
	Authenticated bool  `json:"authenticated"`
	CurrentUser   *User `json:"currentUser,omitempty"`
	View          View  `json:"view"`
}
