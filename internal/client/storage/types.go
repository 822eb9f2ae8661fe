package storage

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// User mirrors the server's public user representation.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// MountState is what the gate reports for the stored session.
type MountState struct {
	Authenticated bool   `json:"authenticated"`
	CurrentUser   *User  `json:"currentUser,omitempty"`
	View          string `json:"view"`
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Authenticated bool      `json:"authenticated"`
	Redirect      string    `json:"redirect"`
	View          string    `json:"view"`
	User          *User     `json:"user"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Protected is the content behind the gate.
type Protected struct {
	User    *User     `json:"user"`
	Message string    `json:"message"`
	Since   time.Time `json:"since"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string            `json:"error"`
	Fields  map[string]string `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return "server returned status " + http.StatusText(e.Status)
		}
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}
