// Package models contains data structures for the application's domain models.
package models

import "time"

// Identity is the authenticated subject as reported by the backend.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the credentials for the current authenticated identity.
// A nil Session means logged out.
type Session struct {
	Identity     *Identity `json:"identity"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is past its expiry.
// A zero ExpiresAt is treated as non-expiring.
func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}
