// Package notify delivers verification codes to users.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Notifier sends a one-time code to an email address.
type Notifier interface {
	SendCode(ctx context.Context, email, code string) error
}

// Subject is the subject line of verification emails.
const Subject = "Your Verification Code"

// Body renders the plain-text body of a verification email.
func Body(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is: %s\nThis code will expire in %d minutes.\n",
		code, int(ttl.Minutes()))
}

// Chain tries each notifier in order and stops at the first success.
type Chain []Notifier

// SendCode implements Notifier. It returns the joined errors when every
// notifier fails.
func (c Chain) SendCode(ctx context.Context, email, code string) error {
	if len(c) == 0 {
		return errors.New("no notifier configured")
	}
	var errs []error
	for _, n := range c {
		err := n.SendCode(ctx, email, code)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogNotifier writes codes to the log instead of sending them. For local
// development only.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendCode implements Notifier.
func (n LogNotifier) SendCode(_ context.Context, email, code string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("verification code (log delivery, development only)", "email", email, "code", code)
	return nil
}
