package models

import "time"

// RefreshToken is one long-lived login session. The token itself is an
// opaque random string; revocation is soft so the row keeps its audit trail.
type RefreshToken struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	Token  string `db:"token" json:"token"`

	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`

	// Client fingerprint captured at login, shown in session listings.
	IPAddress string `db:"ip_address" json:"ip_address"`
	UserAgent string `db:"user_agent" json:"user_agent"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the token has passed its expiry.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Usable reports whether the token can still mint access tokens.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}
