package domain

import (
	"context"
	"time"
)

// AccountStore persists account identity and lockout state. Lookup methods
// return (nil, nil) when no row matches.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	// Create relies on the store's unique index on email: concurrent
	// registrations with the same address yield exactly one success.
	Create(ctx context.Context, account *Account) error
	UpdateLockout(ctx context.Context, accountID string, attempts int, lockedUntil *time.Time) error
	UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, accountID, passwordHash string) error
	// MarkEmailVerified sets email_verified and flips a PENDING_VERIFICATION
	// account to ACTIVE. Other statuses keep their status.
	MarkEmailVerified(ctx context.Context, accountID string) error
}

type RefreshTokenStore interface {
	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// RevokeRefreshTokenIfActive is the atomic half of rotation: it revokes
	// the row only if it is not already revoked and reports whether this
	// call won. Two concurrent rotations of one token see one true.
	RevokeRefreshTokenIfActive(ctx context.Context, id string, at time.Time) (bool, error)
	RevokeAllRefreshTokens(ctx context.Context, accountID string, at time.Time) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	EndAllSessions(ctx context.Context, accountID string) error
}

// OneTimeTokenStore handles the single-use reset and verification tokens.
// Consume methods are conditional updates: they succeed at most once per
// token and return ErrInvalidOrExpiredToken otherwise.
type OneTimeTokenStore interface {
	CreatePasswordResetToken(ctx context.Context, t *PasswordResetToken) error
	ConsumePasswordResetToken(ctx context.Context, tokenHash string, now time.Time) (accountID string, err error)
	CreateEmailVerificationToken(ctx context.Context, t *EmailVerificationToken) error
	ConsumeEmailVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*EmailVerificationToken, error)
}

// Store is the full persistence contract consumed by the auth service.
type Store interface {
	AccountStore
	RefreshTokenStore
	SessionStore
	OneTimeTokenStore
}
