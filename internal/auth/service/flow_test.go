package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/learnsphere/auth-service/internal/auth/domain"
	"github.com/learnsphere/auth-service/internal/auth/dto"
	"github.com/learnsphere/auth-service/internal/auth/service"
	errs "github.com/learnsphere/auth-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory domain.Store with the same conditional-update
// semantics as the Postgres repository, used to exercise whole flows.
type memStore struct {
	mu            sync.Mutex
	accounts      map[string]*domain.Account // by id
	refreshTokens map[string]*domain.RefreshToken
	sessions      map[string]*domain.Session
	resetTokens   map[string]*domain.PasswordResetToken
	verifyTokens  map[string]*domain.EmailVerificationToken
}

func newMemStore() *memStore {
	return &memStore{
		accounts:      make(map[string]*domain.Account),
		refreshTokens: make(map[string]*domain.RefreshToken),
		sessions:      make(map[string]*domain.Session),
		resetTokens:   make(map[string]*domain.PasswordResetToken),
		verifyTokens:  make(map[string]*domain.EmailVerificationToken),
	}
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return errs.ErrEmailAlreadyInUse
		}
	}
	c := *account
	m.accounts[account.ID] = &c
	return nil
}

func (m *memStore) UpdateLockout(_ context.Context, accountID string, attempts int, lockedUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[accountID]; ok {
		a.FailedLoginAttempts = attempts
		a.LockedUntil = lockedUntil
	}
	return nil
}

func (m *memStore) UpdateLastLogin(_ context.Context, accountID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[accountID]; ok {
		a.LastLoginAt = &at
	}
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, accountID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[accountID]; ok {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (m *memStore) MarkEmailVerified(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[accountID]; ok {
		a.EmailVerified = true
		if a.Status == domain.StatusPendingVerification {
			a.Status = domain.StatusActive
		}
	}
	return nil
}

func (m *memStore) StoreRefreshToken(_ context.Context, rt *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *rt
	m.refreshTokens[rt.ID] = &c
	return nil
}

func (m *memStore) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.refreshTokens {
		if rt.TokenHash == tokenHash {
			c := *rt
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) RevokeRefreshTokenIfActive(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.refreshTokens[id]
	if !ok || rt.Revoked {
		return false, nil
	}
	rt.Revoked = true
	rt.RevokedAt = &at
	return true, nil
}

func (m *memStore) RevokeAllRefreshTokens(_ context.Context, accountID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.refreshTokens {
		if rt.AccountID == accountID && !rt.Revoked {
			rt.Revoked = true
			rt.RevokedAt = &at
		}
	}
	return nil
}

func (m *memStore) CreateSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.sessions[s.ID] = &c
	return nil
}

func (m *memStore) EndAllSessions(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.AccountID == accountID {
			s.IsActive = false
		}
	}
	return nil
}

func (m *memStore) CreatePasswordResetToken(_ context.Context, t *domain.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.resetTokens[t.ID] = &c
	return nil
}

func (m *memStore) ConsumePasswordResetToken(_ context.Context, tokenHash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.resetTokens {
		if t.TokenHash == tokenHash && !t.Used && t.ExpiresAt.After(now) {
			t.Used = true
			t.UsedAt = &now
			return t.AccountID, nil
		}
	}
	return "", errs.ErrInvalidOrExpiredToken
}

func (m *memStore) CreateEmailVerificationToken(_ context.Context, t *domain.EmailVerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.verifyTokens[t.ID] = &c
	return nil
}

func (m *memStore) ConsumeEmailVerificationToken(_ context.Context, tokenHash string, now time.Time) (*domain.EmailVerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.verifyTokens {
		if t.TokenHash == tokenHash && !t.Verified && t.ExpiresAt.After(now) {
			t.Verified = true
			t.VerifiedAt = &now
			c := *t
			return &c, nil
		}
	}
	return nil, errs.ErrInvalidOrExpiredToken
}

// captureNotifier records the raw tokens the service hands to the delivery
// channel, standing in for the email sender.
type captureNotifier struct {
	mu                 sync.Mutex
	verificationTokens map[string]string // email -> raw token
	resetTokens        map[string]string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{
		verificationTokens: make(map[string]string),
		resetTokens:        make(map[string]string),
	}
}

func (n *captureNotifier) SendVerificationToken(_ context.Context, email, rawToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verificationTokens[email] = rawToken
	return nil
}

func (n *captureNotifier) SendPasswordResetToken(_ context.Context, email, rawToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetTokens[email] = rawToken
	return nil
}

func newFlowService(t *testing.T) (*service.UserService, *memStore, *captureNotifier) {
	t.Helper()
	store := newMemStore()
	notifier := newCaptureNotifier()
	tokens := service.NewTokenService("flow-test-secret", 15, 10080)
	s := service.NewUserService(store, tokens, notifier, testConfig())
	return s, store, notifier
}

// TestFullAccountLifecycle walks one account through registration,
// verification, login, lockout, recovery via password reset, and the death
// of its pre-reset refresh token.
func TestFullAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	s, store, notifier := newFlowService(t)

	// Register: account starts pending.
	registered, err := s.Register(ctx, dto.RegisterInput{Email: "a@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPendingVerification), registered.Status)

	// Duplicate registration, case-insensitive, fails.
	_, err = s.Register(ctx, dto.RegisterInput{Email: "A@X.COM", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, errs.ErrEmailAlreadyInUse)

	// Login before verification is refused.
	_, err = s.Login(ctx, dto.LoginInput{Email: "a@x.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, errs.ErrEmailNotVerified)

	// Verify with the token handed to the notifier.
	rawVerify := notifier.verificationTokens["a@x.com"]
	require.NotEmpty(t, rawVerify)
	require.NoError(t, s.VerifyEmail(ctx, rawVerify))

	// The verification token is single-use.
	assert.ErrorIs(t, s.VerifyEmail(ctx, rawVerify), errs.ErrInvalidOrExpiredToken)

	// Login now succeeds.
	login, err := s.Login(ctx, dto.LoginInput{Email: "a@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)
	require.NotEmpty(t, login.Tokens.AccessToken)
	require.NotEmpty(t, login.Tokens.RefreshToken)
	assert.Equal(t, string(domain.StatusActive), login.Account.Status)

	// Five wrong passwords: the fifth still reports invalid credentials...
	for i := 0; i < 5; i++ {
		_, err = s.Login(ctx, dto.LoginInput{Email: "a@x.com", Password: "wrong"})
		assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
	}

	// ...and the sixth is locked out even with the correct password.
	_, err = s.Login(ctx, dto.LoginInput{Email: "a@x.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, errs.ErrAccountLocked)

	// The lock expires lazily: rewind locked_until and login again.
	past := time.Now().Add(-time.Second)
	store.mu.Lock()
	store.accounts[registered.ID].LockedUntil = &past
	store.mu.Unlock()

	relogin, err := s.Login(ctx, dto.LoginInput{Email: "a@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	// A successful login resets the failure counter.
	account, err := store.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, account.FailedLoginAttempts)
	assert.Nil(t, account.LockedUntil)

	// Reset the password; every outstanding refresh token dies with it.
	_, err = s.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	rawReset := notifier.resetTokens["a@x.com"]
	require.NotEmpty(t, rawReset)

	require.NoError(t, s.ResetPassword(ctx, dto.ResetPasswordInput{Token: rawReset, NewPassword: "NewPassw0rd!"}))

	_, err = s.Refresh(ctx, dto.RefreshInput{RefreshToken: relogin.Tokens.RefreshToken})
	assert.ErrorIs(t, err, errs.ErrInvalidToken)

	// The reset token is single-use too.
	err = s.ResetPassword(ctx, dto.ResetPasswordInput{Token: rawReset, NewPassword: "NewPassw0rd!"})
	assert.ErrorIs(t, err, errs.ErrInvalidOrExpiredToken)

	// Old password is gone, new one works.
	_, err = s.Login(ctx, dto.LoginInput{Email: "a@x.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
	_, err = s.Login(ctx, dto.LoginInput{Email: "a@x.com", Password: "NewPassw0rd!"})
	assert.NoError(t, err)
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	s, _, notifier := newFlowService(t)

	login := registerVerifyLogin(t, s, notifier, "rotate@x.com")

	// First rotation succeeds and yields a different pair.
	rotated, err := s.Refresh(ctx, dto.RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	// The consumed token can never be rotated again.
	_, err = s.Refresh(ctx, dto.RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	assert.ErrorIs(t, err, errs.ErrInvalidToken)

	// The replacement token is live.
	_, err = s.Refresh(ctx, dto.RefreshInput{RefreshToken: rotated.RefreshToken})
	assert.NoError(t, err)
}

func TestRefreshRotation_ConcurrentSingleUse(t *testing.T) {
	ctx := context.Background()
	s, _, notifier := newFlowService(t)

	login := registerVerifyLogin(t, s, notifier, "race@x.com")

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Refresh(ctx, dto.RefreshInput{RefreshToken: login.Tokens.RefreshToken})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, invalid int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errs.ErrInvalidToken):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one rotation may win")
	assert.Equal(t, workers-1, invalid)
}

func TestPasswordReset_ConcurrentSingleUse(t *testing.T) {
	ctx := context.Background()
	s, _, notifier := newFlowService(t)

	registerVerifyLogin(t, s, notifier, "reset-race@x.com")

	_, err := s.ForgotPassword(ctx, "reset-race@x.com")
	require.NoError(t, err)
	rawReset := notifier.resetTokens["reset-race@x.com"]
	require.NotEmpty(t, rawReset)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.ResetPassword(ctx, dto.ResetPasswordInput{Token: rawReset, NewPassword: "NewPassw0rd!"})
		}()
	}
	wg.Wait()
	close(results)

	var successes, invalid int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errs.ErrInvalidOrExpiredToken):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one consumption may win")
	assert.Equal(t, workers-1, invalid)
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _, notifier := newFlowService(t)

	login := registerVerifyLogin(t, s, notifier, "logout@x.com")
	accountID := login.Account.ID

	require.NoError(t, s.Logout(ctx, accountID))
	require.NoError(t, s.Logout(ctx, accountID))

	_, err := s.Refresh(ctx, dto.RefreshInput{RefreshToken: login.Tokens.RefreshToken})
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func registerVerifyLogin(t *testing.T, s *service.UserService, notifier *captureNotifier, email string) *dto.LoginOutput {
	t.Helper()
	ctx := context.Background()

	_, err := s.Register(ctx, dto.RegisterInput{Email: email, Password: "Passw0rd!"})
	require.NoError(t, err)

	raw := notifier.verificationTokens[email]
	require.NotEmpty(t, raw)
	require.NoError(t, s.VerifyEmail(ctx, raw))

	login, err := s.Login(ctx, dto.LoginInput{Email: email, Password: "Passw0rd!"})
	require.NoError(t, err)
	return login
}
