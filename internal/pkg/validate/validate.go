package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)
	phoneRe    = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
)

// Username checks format only; length and uniqueness are enforced by the
// caller. Must start with a letter; letters, digits, dots, underscores and
// hyphens after that.
func Username(username string) error {
	if len(username) == 0 || !unicode.IsLetter(rune(username[0])) {
		return fmt.Errorf("username must start with a letter")
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// Phone checks the 7-15 digit format with an optional leading +.
func Phone(phone string) error {
	if !phoneRe.MatchString(phone) {
		return fmt.Errorf("enter a valid phone number (7-15 digits, optional + prefix)")
	}
	return nil
}

// passwordSpecials is the fixed special-character set accepted by the
// password policy.
const passwordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// Password enforces the signup password policy. Checks run in a fixed
// order and the first failure is returned on its own, not aggregated.
func Password(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return fmt.Errorf("password must contain at least one number")
	}
	if !strings.ContainsAny(password, passwordSpecials) {
		return fmt.Errorf("password must contain at least one special character (%s)", passwordSpecials)
	}
	return nil
}
