package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/xbrain-api/internal/infrastructure/cache"
	"github.com/xbrain-api/internal/infrastructure/smtp"
)

var (
	// ErrResendLimit means the resend cap for the window has been hit.
	// It clears itself when the throttle keys expire.
	ErrResendLimit = errors.New("maximum OTP resend attempts reached, please try again later")
	// ErrDeliveryFailed means the mail collaborator could not deliver the
	// code. The resend slot is not consumed in this case.
	ErrDeliveryFailed = errors.New("failed to send verification email, please try again")
)

// ResendWaitError is returned when a resend arrives before the minimum
// inter-send delay has elapsed.
type ResendWaitError struct {
	Seconds int
}

func (e *ResendWaitError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting a new code", e.Seconds)
}

// Cache key prefixes. All state is keyed by email; none of it references a
// durable user id.
const (
	codeKeyPrefix     = "otp:"
	lastSentKeyPrefix = "otp_last_sent:"
	resendKeyPrefix   = "otp_resend_count:"
)

// throttleTTL bounds how long last-sent and resend-count state lives. The
// resend cap resets implicitly when these keys expire.
const throttleTTL = 5 * time.Minute

type Config struct {
	Length      int
	Validity    time.Duration
	ResendDelay time.Duration
	MaxResends  int
}

// Service manages the full OTP lifecycle: generation, storage, throttled
// delivery and one-time verification.
type Service interface {
	Issue(ctx context.Context, email, firstName string) error
	Verify(ctx context.Context, email, code string) (bool, error)
	CanResend(ctx context.Context, email string) (bool, int, error)
	ClearThrottle(ctx context.Context, email string) error
}

type service struct {
	store  cache.Store
	mailer smtp.Mailer
	cfg    Config
}

func NewService(store cache.Store, mailer smtp.Mailer, cfg Config) Service {
	return &service{store: store, mailer: mailer, cfg: cfg}
}

// Generate returns a numeric code with each digit drawn independently via
// crypto/rand. A 6-digit code is guessable in a 1e6 space — resends are
// capped, verification attempts currently are not.
func Generate(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// Issue checks both throttles, stores a fresh code (overwriting any prior
// one) and emails it. Throttle state is only updated after the send
// succeeds, so a delivery failure never burns a resend slot.
func (s *service) Issue(ctx context.Context, email, firstName string) error {
	allowed, wait, err := s.CanResend(ctx, email)
	if err != nil {
		return err
	}
	if !allowed {
		return &ResendWaitError{Seconds: wait}
	}

	count, err := s.store.GetInt(ctx, resendKeyPrefix+email)
	if err != nil {
		return err
	}
	if count >= int64(s.cfg.MaxResends) {
		return ErrResendLimit
	}

	code, err := Generate(s.cfg.Length)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, codeKeyPrefix+email, code, s.cfg.Validity); err != nil {
		return err
	}

	if err := s.mailer.SendEmail(email, verificationSubject, verificationBody(firstName, code, s.cfg.Validity)); err != nil {
		slog.Warn("verification email send failed", "email", email, "err", err)
		return ErrDeliveryFailed
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.store.Set(ctx, lastSentKeyPrefix+email, now, throttleTTL); err != nil {
		return err
	}
	if _, err := s.store.Incr(ctx, resendKeyPrefix+email, throttleTTL); err != nil {
		return err
	}
	return nil
}

// Verify consumes the stored code iff it matches exactly. A wrong guess
// leaves the stored code untouched so a still-valid code survives typos.
func (s *service) Verify(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.store.Get(ctx, codeKeyPrefix+email)
	if err != nil {
		return false, err
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}
	if err := s.store.Delete(ctx, codeKeyPrefix+email); err != nil {
		return false, err
	}
	return true, nil
}

// CanResend reports whether the minimum inter-send delay has elapsed and,
// if not, how many seconds remain.
func (s *service) CanResend(ctx context.Context, email string) (bool, int, error) {
	raw, err := s.store.Get(ctx, lastSentKeyPrefix+email)
	if err != nil {
		return false, 0, err
	}
	if raw == "" {
		return true, 0, nil
	}
	lastSent, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Unreadable marker: treat as absent rather than lock the user out.
		return true, 0, nil
	}
	elapsed := time.Since(time.Unix(lastSent, 0))
	if elapsed >= s.cfg.ResendDelay {
		return true, 0, nil
	}
	return false, int((s.cfg.ResendDelay - elapsed).Seconds()) + 1, nil
}

// ClearThrottle drops the last-sent marker and resend counter for email.
// Called when a registration completes so the address starts clean.
func (s *service) ClearThrottle(ctx context.Context, email string) error {
	return s.store.Delete(ctx, lastSentKeyPrefix+email, resendKeyPrefix+email)
}

const verificationSubject = "Welcome to xBrain! Verify your email"

func verificationBody(firstName, code string, validity time.Duration) string {
	greeting := "Hi,"
	if firstName != "" {
		greeting = fmt.Sprintf("Hi %s,", firstName)
	}
	return fmt.Sprintf(`%s

Thank you for joining xBrain!

Your verification code is: %s

This code will expire in %d minutes.

If you didn't create an account, please ignore this email.

Best regards,
The xBrain Team
`, greeting, code, int(validity.Minutes()))
}
