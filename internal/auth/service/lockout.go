package service

import (
	"time"

	"github.com/learnsphere/auth-service/internal/auth/domain"
)

// LockoutPolicy drives the per-account lockout state machine from login
// outcomes. State lives on the account row; the policy itself is pure.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

func NewLockoutPolicy(maxAttempts, durationMinutes int) LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts:  maxAttempts,
		LockDuration: time.Duration(durationMinutes) * time.Minute,
	}
}

// Locked reports whether the account is currently locked. Expiry is lazy:
// a locked_until in the past means unlocked, no explicit transition needed.
func (p LockoutPolicy) Locked(account *domain.Account, now time.Time) bool {
	return account.LockedUntil != nil && now.Before(*account.LockedUntil)
}

// NextFailure returns the counter and locked_until to persist after a failed
// password check. Reaching MaxAttempts sets locked_until = now + duration.
func (p LockoutPolicy) NextFailure(account *domain.Account, now time.Time) (int, *time.Time) {
	attempts := account.FailedLoginAttempts + 1
	if attempts >= p.MaxAttempts {
		lockedUntil := now.Add(p.LockDuration)
		return attempts, &lockedUntil
	}
	return attempts, nil
}
