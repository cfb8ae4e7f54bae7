package sanitize

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

var (
	validate = validator.New()

	// Israeli mobile numbers: 05 followed by eight digits.
	phonePattern    = regexp.MustCompile(`^05\d{8}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// IsValidEmail reports whether s is a syntactically valid email address.
func IsValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// IsValidPhone reports whether s is a valid local mobile number after
// stripping common separators.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(phoneSeparators.Replace(strings.TrimSpace(s)))
}

// IsValidPassword reports whether s meets the minimum length requirement.
func IsValidPassword(s string) bool {
	return len(s) >= MinPasswordLength
}
