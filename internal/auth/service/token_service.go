package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/learnsphere/auth-service/internal/auth/service TokenGenerator

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/learnsphere/auth-service/internal/errors"
)

type TokenType string

const (
	AccessTokenType  TokenType = "access"
	RefreshTokenType TokenType = "refresh"
)

type TokenGenerator interface {
	Generate(accountID, email string) (accessToken, refreshToken string, refreshExpiresAt time.Time, err error)
	VerifyAccessToken(tokenString string) (*Claims, error)
	VerifyRefreshToken(tokenString string) (*Claims, error)
	AccessTokenTTL() time.Duration
}

type Claims struct {
	jwt.RegisteredClaims
	Email     string    `json:"email,omitempty"`
	TokenType TokenType `json:"typ"`
}

// AccountID returns the account id carried in the Subject claim.
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenService signs access and refresh JWTs with one process-wide HMAC
// secret. The two kinds are told apart by the typ claim.
type TokenService struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

func NewTokenService(secret string, accessMinutes, refreshMinutes int) *TokenService {
	return &TokenService{
		secret:             secret,
		accessTokenExpiry:  time.Duration(accessMinutes) * time.Minute,
		refreshTokenExpiry: time.Duration(refreshMinutes) * time.Minute,
	}
}

func (ts *TokenService) Generate(accountID, email string) (string, string, time.Time, error) {
	now := time.Now()
	refreshExpiresAt := now.Add(ts.refreshTokenExpiry)

	accessClaims := Claims{
		Email:     email,
		TokenType: AccessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	refreshClaims := Claims{
		TokenType: RefreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(refreshExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(ts.secret))
	if err != nil {
		return "", "", time.Time{}, err
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(ts.secret))
	if err != nil {
		return "", "", time.Time{}, err
	}

	return accessToken, refreshToken, refreshExpiresAt, nil
}

// VerifyAccessToken parses and validates an access token string. Any failure
// (bad signature, malformed, expired, wrong typ) surfaces as ErrInvalidToken.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	return ts.verify(tokenString, AccessTokenType)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return ts.verify(tokenString, RefreshTokenType)
}

func (ts *TokenService) verify(tokenString string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errs.ErrInvalidToken
	}

	if claims.TokenType != expected {
		return nil, errs.ErrInvalidToken
	}

	return claims, nil
}

func (ts *TokenService) AccessTokenTTL() time.Duration {
	return ts.accessTokenExpiry
}

// HashToken is the one-way digest applied to every token before it is
// persisted. Lookups match on the full digest, so no secret material is ever
// string-compared in Go code.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewOpaqueToken mints the random value used for session, password-reset and
// email-verification tokens.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
