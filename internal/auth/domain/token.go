package domain

import "time"

// RefreshToken is the stored side of an issued refresh credential. Only the
// SHA-256 hash of the raw token is persisted.
type RefreshToken struct {
	ID                string
	AccountID         string
	TokenHash         string
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	ExpiresAt         time.Time
	CreatedAt         time.Time
	Revoked           bool
	RevokedAt         *time.Time
}

// Session represents a browser/device session, parallel to RefreshToken but
// revocable server-side. The session token is hashed at rest.
type Session struct {
	ID           string
	AccountID    string
	TokenHash    string
	IPAddress    string
	UserAgent    string
	IsActive     bool
	ExpiresAt    time.Time
	LastActivity time.Time
	CreatedAt    time.Time
}

// PasswordResetToken is single-use: once Used is set it is rejected forever,
// expired or not.
type PasswordResetToken struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// EmailVerificationToken is single-use and keyed by account id. The email is
// captured at issuance for the delivery channel.
type EmailVerificationToken struct {
	ID         string
	AccountID  string
	Email      string
	TokenHash  string
	ExpiresAt  time.Time
	Verified   bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
}
