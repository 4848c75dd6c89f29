package constant

// Default values for the configuration knobs. TTLs are expressed in minutes
// to match the environment variables that override them.
const (
	DefaultAccessExpiryMin        = 15
	DefaultRefreshExpiryMin       = 10080 // 7 days
	DefaultResetExpiryMin         = 60
	DefaultVerificationExpiryMin  = 1440 // 24 hours
	DefaultSessionExpiryMin       = 10080
	DefaultMaxFailedLoginAttempts = 5
	DefaultLockoutDurationMin     = 30
	DefaultBcryptCost             = 12
)

// GenericForgotPasswordMessage is returned by ForgotPassword whether or not
// the email exists, so the endpoint cannot be used to enumerate accounts.
const GenericForgotPasswordMessage = "If an account exists for that email, a password reset link has been sent."
