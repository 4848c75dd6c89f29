package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/learnsphere/auth-service/internal/auth/domain"
	errs "github.com/learnsphere/auth-service/internal/errors"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// infraErr wraps unexpected database failures so callers can detect them as
// retryable with errors.Is(err, errs.ErrInfrastructure).
func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, errs.ErrInfrastructure, err)
}

const accountColumns = `id, email, password_hash, email_verified, status,
		failed_login_attempts, locked_until, last_login_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.EmailVerified, &a.Status,
		&a.FailedLoginAttempts, &a.LockedUntil, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
		LIMIT 1;
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, infraErr("get account by email", err)
	}
	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		LIMIT 1;
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, infraErr("get account by id", err)
	}
	return account, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, email_verified, status,
			failed_login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, account.ID, account.Email, account.PasswordHash, account.EmailVerified,
		account.Status, account.FailedLoginAttempts, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return errs.ErrEmailAlreadyInUse
		}
		return infraErr("create account", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateLockout(ctx context.Context, accountID string, attempts int, lockedUntil *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET failed_login_attempts = $2, locked_until = $3, updated_at = now()
		WHERE id = $1
	`, accountID, attempts, lockedUntil)
	if err != nil {
		return infraErr("update lockout", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET last_login_at = $2, updated_at = now()
		WHERE id = $1
	`, accountID, at)
	if err != nil {
		return infraErr("update last login", err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, accountID, passwordHash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`, accountID, passwordHash)
	if err != nil {
		return infraErr("update password hash", err)
	}
	return nil
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, accountID string) error {
	// Only PENDING_VERIFICATION flips to ACTIVE; a suspended account stays
	// suspended even after verifying its address.
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET email_verified = TRUE,
			status = CASE WHEN status = 'PENDING_VERIFICATION' THEN 'ACTIVE' ELSE status END,
			updated_at = now()
		WHERE id = $1
	`, accountID)
	if err != nil {
		return infraErr("mark email verified", err)
	}
	return nil
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, account_id, token_hash, device_fingerprint,
			ip_address, user_agent, expires_at, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rt.ID, rt.AccountID, rt.TokenHash, rt.DeviceFingerprint,
		rt.IPAddress, rt.UserAgent, rt.ExpiresAt, rt.CreatedAt, rt.Revoked)
	if err != nil {
		return infraErr("store refresh token", err)
	}
	return nil
}

func (r *PostgresRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, account_id, token_hash, device_fingerprint, ip_address,
			user_agent, expires_at, created_at, revoked, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
		LIMIT 1;
	`
	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(&rt.ID, &rt.AccountID, &rt.TokenHash,
		&rt.DeviceFingerprint, &rt.IPAddress, &rt.UserAgent, &rt.ExpiresAt,
		&rt.CreatedAt, &rt.Revoked, &rt.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, infraErr("get refresh token", err)
	}
	return &rt, nil
}

func (r *PostgresRepository) RevokeRefreshTokenIfActive(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE id = $1 AND revoked = FALSE
	`, id, at)
	if err != nil {
		return false, infraErr("revoke refresh token", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) RevokeAllRefreshTokens(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE account_id = $1 AND revoked = FALSE
	`, accountID, at)
	if err != nil {
		return infraErr("revoke all refresh tokens", err)
	}
	return nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, ip_address, user_agent,
			is_active, expires_at, last_activity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.AccountID, s.TokenHash, s.IPAddress, s.UserAgent,
		s.IsActive, s.ExpiresAt, s.LastActivity, s.CreatedAt)
	if err != nil {
		return infraErr("create session", err)
	}
	return nil
}

func (r *PostgresRepository) EndAllSessions(ctx context.Context, accountID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE
		WHERE account_id = $1 AND is_active = TRUE
	`, accountID)
	if err != nil {
		return infraErr("end all sessions", err)
	}
	return nil
}

func (r *PostgresRepository) CreatePasswordResetToken(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, account_id, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.AccountID, t.TokenHash, t.ExpiresAt, t.Used, t.CreatedAt)
	if err != nil {
		return infraErr("create password reset token", err)
	}
	return nil
}

// ConsumePasswordResetToken marks the token used in a single conditional
// update. The WHERE clause makes double consumption impossible: the second
// caller matches zero rows and gets ErrInvalidOrExpiredToken.
func (r *PostgresRepository) ConsumePasswordResetToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	query := `
		UPDATE password_reset_tokens
		SET used = TRUE, used_at = $2
		WHERE token_hash = $1 AND used = FALSE AND expires_at > $2
		RETURNING account_id
	`
	var accountID string
	err := r.db.QueryRow(ctx, query, tokenHash, now).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrInvalidOrExpiredToken
		}
		return "", infraErr("consume password reset token", err)
	}
	return accountID, nil
}

func (r *PostgresRepository) CreateEmailVerificationToken(ctx context.Context, t *domain.EmailVerificationToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_verification_tokens (id, account_id, email, token_hash, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.AccountID, t.Email, t.TokenHash, t.ExpiresAt, t.Verified, t.CreatedAt)
	if err != nil {
		return infraErr("create email verification token", err)
	}
	return nil
}

func (r *PostgresRepository) ConsumeEmailVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*domain.EmailVerificationToken, error) {
	query := `
		UPDATE email_verification_tokens
		SET verified = TRUE, verified_at = $2
		WHERE token_hash = $1 AND verified = FALSE AND expires_at > $2
		RETURNING id, account_id, email, expires_at, created_at
	`
	var t domain.EmailVerificationToken
	err := r.db.QueryRow(ctx, query, tokenHash, now).Scan(&t.ID, &t.AccountID, &t.Email, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrInvalidOrExpiredToken
		}
		return nil, infraErr("consume email verification token", err)
	}
	t.TokenHash = tokenHash
	t.Verified = true
	t.VerifiedAt = &now
	return &t, nil
}
