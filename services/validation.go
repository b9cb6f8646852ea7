package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// PasswordRules is the message shown whenever a password fails the format check.
const PasswordRules = "Password must be at least 8 characters with 1 uppercase, 1 lowercase, 1 number, and 1 special character"

const passwordSpecials = "!@#$%^&*()_+[]{};':\"\\|,.<>/?~`-"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("aedi_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("aedi_password", func(fl validator.FieldLevel) bool {
		return validPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("aedi_username", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(fl.Field().String())
		return n >= 3 && n <= 64
	})
	return v
}

// validPassword requires 8+ characters drawn from letters, digits and the
// special set, with at least one of each class.
func validPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// ValidPassword reports whether s satisfies the password rules.
func ValidPassword(s string) bool { return validPassword(s) }

// ValidEmail reports whether s looks like an address.
func ValidEmail(s string) bool { return validate.Var(s, "aedi_email") == nil }

func checkUsername(s string) error {
	if validate.Var(s, "required,aedi_username") != nil {
		return validationError("Username must be between 3 and 64 characters")
	}
	return nil
}

func checkEmail(s string) error {
	if validate.Var(s, "required,aedi_email") != nil {
		return validationError("Invalid email format")
	}
	return nil
}

func checkPassword(s string) error {
	if validate.Var(s, "required,aedi_password") != nil {
		return validationError(PasswordRules)
	}
	return nil
}
