package models

import "time"

// Session is an anonymous identity issued at startup.
// It lives only as long as the process; nothing persists it client-side.
type Session struct {
	// UserID is the opaque identifier every document is scoped by.
	UserID string `json:"user_id"`

	// Token is the bearer token presented to the document store.
	Token string `json:"token"`

	// ExpiresAt is when Token stops being accepted.
	ExpiresAt time.Time `json:"expires_at"`
}

// AnonymousUser is the server-side record of an issued anonymous identity.
type AnonymousUser struct {
	// ID is the user identifier handed out at sign-in (UUID format).
	ID string

	// CreatedAt is the Unix timestamp of the sign-in.
	CreatedAt int64

	// ExpiresAt is the Unix timestamp after which the issued token is rejected.
	ExpiresAt int64
}
