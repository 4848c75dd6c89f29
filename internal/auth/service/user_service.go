package service

//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks github.com/learnsphere/auth-service/internal/auth/domain Store
//go:generate mockgen -destination=../../mocks/mock_notifier.go -package=mocks github.com/learnsphere/auth-service/internal/auth/service Notifier

import (
	"context"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/learnsphere/auth-service/config"
	"github.com/learnsphere/auth-service/internal/auth/domain"
	"github.com/learnsphere/auth-service/internal/auth/dto"
	errs "github.com/learnsphere/auth-service/internal/errors"
	"github.com/learnsphere/auth-service/pkg/constant"
)

// Notifier is the out-of-band delivery channel for raw verification and
// reset tokens. The service never sends email itself.
type Notifier interface {
	SendVerificationToken(ctx context.Context, email, rawToken string) error
	SendPasswordResetToken(ctx context.Context, email, rawToken string) error
}

// UserService coordinates the credential store, token issuer, lockout policy
// and notifier to implement the auth flows. All dependencies are injected.
type UserService struct {
	store        domain.Store
	tokenService TokenGenerator
	hasher       *PasswordHasher
	lockout      LockoutPolicy
	notifier     Notifier
	cfg          *config.Config
}

func NewUserService(store domain.Store, tokenService TokenGenerator, notifier Notifier, cfg *config.Config) *UserService {
	return &UserService{
		store:        store,
		tokenService: tokenService,
		hasher:       NewPasswordHasher(cfg.BcryptCost),
		lockout:      NewLockoutPolicy(cfg.MaxFailedLoginAttempts, cfg.LockoutDurationMin),
		notifier:     notifier,
		cfg:          cfg,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errs.ErrInvalidEmail
	}
	return email, nil
}

// Register creates a PENDING_VERIFICATION account and hands the raw
// verification token to the notifier. Tokens are never returned to the caller.
func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*dto.RegisterOutput, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if err := ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.ErrEmailAlreadyInUse
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Status:       domain.StatusPendingVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index on email is the real duplicate guard; the lookup
	// above only short-circuits the common case.
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}

	if err := s.issueVerificationToken(ctx, account, now); err != nil {
		log.Printf("warn: failed to issue verification token for %s: %v", account.ID, err)
	}

	return &dto.RegisterOutput{
		ID:     account.ID,
		Email:  account.Email,
		Status: string(account.Status),
	}, nil
}

func (s *UserService) issueVerificationToken(ctx context.Context, account *domain.Account, now time.Time) error {
	raw, err := NewOpaqueToken()
	if err != nil {
		return err
	}

	token := &domain.EmailVerificationToken{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(time.Duration(s.cfg.VerificationExpiryMin) * time.Minute),
		CreatedAt: now,
	}
	if err := s.store.CreateEmailVerificationToken(ctx, token); err != nil {
		return err
	}

	return s.notifier.SendVerificationToken(ctx, account.Email, raw)
}

// Login authenticates email+password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginOutput, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, errs.ErrInvalidCredentials
	}

	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errs.ErrInvalidCredentials
	}

	now := time.Now()

	// Locked accounts are rejected before any bcrypt work and without
	// touching the failure counter.
	if s.lockout.Locked(account, now) {
		return nil, errs.ErrAccountLocked
	}

	if !s.hasher.Compare(account.PasswordHash, input.Password) {
		attempts, lockedUntil := s.lockout.NextFailure(account, now)
		if uerr := s.store.UpdateLockout(ctx, account.ID, attempts, lockedUntil); uerr != nil {
			log.Printf("warn: failed to record failed login for %s: %v", account.ID, uerr)
		}
		return nil, errs.ErrInvalidCredentials
	}

	if account.Status == domain.StatusPendingVerification {
		return nil, errs.ErrEmailNotVerified
	}
	if account.Status != domain.StatusActive {
		return nil, errs.ErrAccountNotActive
	}

	// Any successful login forces the lockout state back to unlocked.
	if err := s.store.UpdateLockout(ctx, account.ID, 0, nil); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokenPair(ctx, account, input.Fingerprint, input.IPAddress, input.UserAgent, now)
	if err != nil {
		return nil, err
	}

	sessionToken, err := s.createSession(ctx, account.ID, input.IPAddress, input.UserAgent, now)
	if err != nil {
		return nil, err
	}

	return &dto.LoginOutput{
		Account: dto.AccountSummary{
			ID:          account.ID,
			Email:       account.Email,
			Status:      string(account.Status),
			LastLoginAt: &now,
		},
		Tokens:       *tokens,
		SessionToken: sessionToken,
	}, nil
}

func (s *UserService) issueTokenPair(ctx context.Context, account *domain.Account, fingerprint, ip, userAgent string, now time.Time) (*dto.TokenResponse, error) {
	accessToken, refreshToken, refreshExpiresAt, err := s.tokenService.Generate(account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	rt := &domain.RefreshToken{
		ID:                uuid.NewString(),
		AccountID:         account.ID,
		TokenHash:         HashToken(refreshToken),
		DeviceFingerprint: fingerprint,
		IPAddress:         ip,
		UserAgent:         userAgent,
		ExpiresAt:         refreshExpiresAt,
		CreatedAt:         now,
	}
	if err := s.store.StoreRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenService.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *UserService) createSession(ctx context.Context, accountID, ip, userAgent string, now time.Time) (string, error) {
	raw, err := NewOpaqueToken()
	if err != nil {
		return "", err
	}

	session := &domain.Session{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		TokenHash:    HashToken(raw),
		IPAddress:    ip,
		UserAgent:    userAgent,
		IsActive:     true,
		ExpiresAt:    now.Add(time.Duration(s.cfg.SessionExpiryMin) * time.Minute),
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", err
	}

	return raw, nil
}

// Refresh rotates a refresh token: the old stored row is revoked with a
// conditional update, so concurrent rotations of the same token produce
// exactly one new pair.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	if _, err := s.tokenService.VerifyRefreshToken(input.RefreshToken); err != nil {
		return nil, errs.ErrInvalidToken
	}

	stored, err := s.store.GetRefreshTokenByHash(ctx, HashToken(input.RefreshToken))
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Revoked {
		return nil, errs.ErrInvalidToken
	}

	now := time.Now()
	if now.After(stored.ExpiresAt) {
		return nil, errs.ErrInvalidToken
	}

	won, err := s.store.RevokeRefreshTokenIfActive(ctx, stored.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, errs.ErrInvalidToken
	}

	account, err := s.store.GetByID(ctx, stored.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errs.ErrInvalidToken
	}

	return s.issueTokenPair(ctx, account, input.Fingerprint, input.IPAddress, input.UserAgent, now)
}

// Logout revokes every refresh token and ends every session for the account.
// Calling it again is a no-op.
func (s *UserService) Logout(ctx context.Context, accountID string) error {
	now := time.Now()
	if err := s.store.RevokeAllRefreshTokens(ctx, accountID, now); err != nil {
		return err
	}
	return s.store.EndAllSessions(ctx, accountID)
}

// ForgotPassword answers identically whether or not the email exists. When it
// does, the raw reset token goes to the notifier, never to the caller.
func (s *UserService) ForgotPassword(ctx context.Context, email string) (*dto.MessageResponse, error) {
	response := &dto.MessageResponse{Message: constant.GenericForgotPasswordMessage}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return response, nil
	}

	account, err := s.store.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return response, nil
	}

	raw, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token := &domain.PasswordResetToken{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(time.Duration(s.cfg.ResetExpiryMin) * time.Minute),
		CreatedAt: now,
	}
	if err := s.store.CreatePasswordResetToken(ctx, token); err != nil {
		return nil, err
	}

	if err := s.notifier.SendPasswordResetToken(ctx, account.Email, raw); err != nil {
		log.Printf("warn: failed to deliver reset token for %s: %v", account.ID, err)
	}

	return response, nil
}

// ResetPassword consumes the single-use token, replaces the password hash and
// revokes every outstanding bearer credential for the account.
func (s *UserService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	now := time.Now()

	accountID, err := s.store.ConsumePasswordResetToken(ctx, HashToken(input.Token), now)
	if err != nil {
		return err
	}

	if err := ValidatePasswordStrength(input.NewPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePasswordHash(ctx, accountID, passwordHash); err != nil {
		return err
	}

	if err := s.store.RevokeAllRefreshTokens(ctx, accountID, now); err != nil {
		return err
	}
	return s.store.EndAllSessions(ctx, accountID)
}

// VerifyEmail consumes the single-use verification token and activates the
// account.
func (s *UserService) VerifyEmail(ctx context.Context, rawToken string) error {
	token, err := s.store.ConsumeEmailVerificationToken(ctx, HashToken(rawToken), time.Now())
	if err != nil {
		return err
	}

	return s.store.MarkEmailVerified(ctx, token.AccountID)
}
