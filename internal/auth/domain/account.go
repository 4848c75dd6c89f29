package domain

import "time"

type AccountStatus string

const (
	StatusActive              AccountStatus = "ACTIVE"
	StatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
	StatusInactive            AccountStatus = "INACTIVE"
	StatusSuspended           AccountStatus = "SUSPENDED"
)

// Account is never physically deleted; deactivation is a status transition.
type Account struct {
	ID                  string
	Email               string
	PasswordHash        string
	EmailVerified       bool
	Status              AccountStatus
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
