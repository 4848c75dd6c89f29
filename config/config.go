package config

import (
	"log"
	"os"
	"strconv"

	"github.com/learnsphere/auth-service/pkg/constant"
)

// Config holds every runtime knob. TTL fields are minutes; see pkg/constant
// for the defaults.
type Config struct {
	Env         string
	Port        string
	DBURL       string
	TokenSecret string

	AccessExpiryMin       int
	RefreshExpiryMin      int
	ResetExpiryMin        int
	VerificationExpiryMin int
	SessionExpiryMin      int

	MaxFailedLoginAttempts int
	LockoutDurationMin     int
	BcryptCost             int
}

func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DBURL:       mustGetEnv("DB_URL"),
		TokenSecret: mustGetEnv("TOKEN_SECRET"),

		AccessExpiryMin:       getEnvAsInt("ACCESS_TOKEN_EXPIRY", constant.DefaultAccessExpiryMin),
		RefreshExpiryMin:      getEnvAsInt("REFRESH_TOKEN_EXPIRY", constant.DefaultRefreshExpiryMin),
		ResetExpiryMin:        getEnvAsInt("RESET_TOKEN_EXPIRY", constant.DefaultResetExpiryMin),
		VerificationExpiryMin: getEnvAsInt("VERIFICATION_TOKEN_EXPIRY", constant.DefaultVerificationExpiryMin),
		SessionExpiryMin:      getEnvAsInt("SESSION_EXPIRY", constant.DefaultSessionExpiryMin),

		MaxFailedLoginAttempts: getEnvAsInt("MAX_FAILED_LOGIN_ATTEMPTS", constant.DefaultMaxFailedLoginAttempts),
		LockoutDurationMin:     getEnvAsInt("LOCKOUT_DURATION", constant.DefaultLockoutDurationMin),
		BcryptCost:             getEnvAsInt("BCRYPT_COST", constant.DefaultBcryptCost),
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
