package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xbrain-api/internal/application/otp"
	"github.com/xbrain-api/internal/domain"
	"github.com/xbrain-api/internal/infrastructure/cache"
	"github.com/xbrain-api/internal/infrastructure/smtp"
	"github.com/xbrain-api/internal/infrastructure/sns"
	"github.com/xbrain-api/internal/pkg/id"
	"github.com/xbrain-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// pendingTTL is how long a staged registration survives without OTP
// verification. Deliberately longer than the OTP validity: a user can
// resend an expired code without re-registering.
const pendingTTL = 10 * time.Minute

const pendingKeyPrefix = "pending_registration:"

// FieldError is a validation failure scoped to a single request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

type Service interface {
	// Stage validates the signup payload, caches it and sends the first
	// OTP. No durable user is created here.
	Stage(ctx context.Context, req domain.RegisterRequest) error
	// Commit verifies the OTP and materializes the durable user (and its
	// wallet). Returns the created user for token issuance.
	Commit(ctx context.Context, email, code string) (*domain.User, error)
	// ResendOTP re-issues a code for an outstanding pending registration.
	ResendOTP(ctx context.Context, email string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	CreateWithWallet(ctx context.Context, u *domain.User, w *domain.Wallet) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type imageStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) error
	Delete(ctx context.Context, key string) error
}

type service struct {
	users  userStore
	cache  cache.Store
	otp    otp.Service
	mailer smtp.Mailer
	sms    sns.SMSSender
	images imageStore
}

type ServiceDeps struct {
	UserRepo   userStore
	Cache      cache.Store
	OTP        otp.Service
	Mailer     smtp.Mailer
	SMSSender  sns.SMSSender
	ImageStore imageStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:  deps.UserRepo,
		cache:  deps.Cache,
		otp:    deps.OTP,
		mailer: deps.Mailer,
		sms:    deps.SMSSender,
		images: deps.ImageStore,
	}
}

func (s *service) Stage(ctx context.Context, req domain.RegisterRequest) error {
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	req.Email = strings.ToLower(req.Email)
	req.Username = strings.ToLower(req.Username)

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return &FieldError{Field: "email", Message: "this email is already registered"}
	}
	if err := validate.Username(req.Username); err != nil {
		return &FieldError{Field: "username", Message: err.Error()}
	}
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return &FieldError{Field: "username", Message: "this username is already taken"}
	}
	if err := validate.Password(req.Password); err != nil {
		return &FieldError{Field: "password", Message: err.Error()}
	}
	if err := validate.Phone(req.Phone); err != nil {
		return &FieldError{Field: "phone_number", Message: err.Error()}
	}
	if _, err := s.users.GetByPhone(ctx, req.Phone); err == nil {
		return &FieldError{Field: "phone_number", Message: "this phone number is already registered"}
	}

	// The pending key doubles as the one-registration-per-email lock:
	// set-if-absent closes the check-then-set race.
	stored, err := cache.SetJSONNX(ctx, s.cache, pendingKeyPrefix+req.Email, req, pendingTTL)
	if err != nil {
		return err
	}
	if !stored {
		return &FieldError{Field: "email", Message: "an OTP has already been sent to this email, please verify or wait before requesting another"}
	}

	if err := s.otp.Issue(ctx, req.Email, req.FirstName); err != nil {
		// Leave the pending payload in place; the client can hit resend
		// once the throttle allows it.
		return err
	}
	return nil
}

func (s *service) Commit(ctx context.Context, email, code string) (*domain.User, error) {
	email = strings.ToLower(email)

	ok, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &FieldError{Field: "otp", Message: "invalid or expired OTP code"}
	}

	var req domain.RegisterRequest
	found, err := cache.GetJSON(ctx, s.cache, pendingKeyPrefix+email, &req)
	if err != nil {
		return nil, err
	}
	if !found {
		// OTP and pending payload expire independently (300s vs 600s), so
		// a valid code can outlive its registration.
		return nil, &FieldError{Field: "email", Message: "registration data not found, please register again"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        &req.Phone,
		Bio:          req.Bio,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	w := &domain.Wallet{WalletID: id.New(), UserID: u.UserID, Balance: 0}
	if err := s.users.CreateWithWallet(ctx, u, w); err != nil {
		// Covers uniqueness races between two concurrent commits; surface
		// a generic creation failure rather than the raw store error.
		return nil, fmt.Errorf("failed to create user: %w", domain.ErrConflict)
	}

	if req.ProfileImageBase64 != nil && *req.ProfileImageBase64 != "" {
		key := "profile_images/" + u.UserID + ".jpg"
		if imgErr := s.images.UploadBase64(ctx, key, *req.ProfileImageBase64); imgErr != nil {
			slog.Warn("profile image upload failed", "user_id", u.UserID, "err", imgErr)
		} else if upErr := s.users.Update(ctx, u.UserID, map[string]interface{}{domain.AttrProfileImageKey: key}); upErr != nil {
			// The user record never learned about the object, so remove it
			// rather than leaving it orphaned in the bucket.
			slog.Warn("profile image key update failed", "user_id", u.UserID, "err", upErr)
			if delErr := s.images.Delete(ctx, key); delErr != nil {
				slog.Warn("orphaned profile image delete failed", "key", key, "err", delErr)
			}
		} else {
			u.ProfileImageKey = key
		}
	}

	if err := s.cache.Delete(ctx, pendingKeyPrefix+email); err != nil {
		slog.Warn("pending registration cleanup failed", "email", email, "err", err)
	}
	if err := s.otp.ClearThrottle(ctx, email); err != nil {
		slog.Warn("otp throttle cleanup failed", "email", email, "err", err)
	}

	s.sendWelcome(ctx, u)

	return u, nil
}

func (s *service) ResendOTP(ctx context.Context, email string) error {
	email = strings.ToLower(email)

	var req domain.RegisterRequest
	found, err := cache.GetJSON(ctx, s.cache, pendingKeyPrefix+email, &req)
	if err != nil {
		return err
	}
	if !found {
		return &FieldError{Field: "email", Message: "no pending registration found for this email, please register first"}
	}
	return s.otp.Issue(ctx, email, req.FirstName)
}

// sendWelcome is best-effort: a delivery failure never rolls back the
// freshly created user.
func (s *service) sendWelcome(ctx context.Context, u *domain.User) {
	if err := s.mailer.SendEmail(u.Email, welcomeSubject, welcomeBody(u.FirstName, u.Username)); err != nil {
		slog.Warn("welcome email send failed", "email", u.Email, "err", err)
	}
	if s.sms != nil && u.Phone != nil {
		msg := fmt.Sprintf("Welcome to xBrain, %s! Your account is ready.", u.FirstName)
		if err := s.sms.SendSMS(ctx, *u.Phone, msg); err != nil {
			slog.Warn("welcome sms send failed", "user_id", u.UserID, "err", err)
		}
	}
}

const welcomeSubject = "Welcome to xBrain! Your account is ready"

func welcomeBody(firstName, username string) string {
	greeting := "Hi,"
	if firstName != "" {
		greeting = fmt.Sprintf("Hi %s,", firstName)
	}
	return fmt.Sprintf(`%s

Congratulations! Your xBrain account has been successfully verified and is now active.

Your username: %s

You can now log in, explore specializations, build your professional profile and earn points.

Best regards,
The xBrain Team
`, greeting, username)
}

// IsFieldError reports whether err is a field-scoped validation failure
// and returns it when so.
func IsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
