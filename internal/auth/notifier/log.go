package notifier

import (
	"context"
	"log"
)

// LogNotifier is the development delivery channel: it prints raw tokens to
// the process log instead of sending email. Production deployments plug in a
// real sender behind the same interface.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) SendVerificationToken(_ context.Context, email, rawToken string) error {
	log.Printf("verification token for %s: %s", email, rawToken)
	return nil
}

func (n *LogNotifier) SendPasswordResetToken(_ context.Context, email, rawToken string) error {
	log.Printf("password reset token for %s: %s", email, rawToken)
	return nil
}
