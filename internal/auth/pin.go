package auth

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	phonePattern = regexp.MustCompile(`^\d{8}$`)
	pinPattern   = regexp.MustCompile(`^\d{4}$`)
)

// ErrPhoneFormat and ErrPINFormat describe malformed login keys.
var (
	ErrPhoneFormat = errors.New("phone number must be 8 digits")
	ErrPINFormat   = errors.New("pin must be 4 digits")
)

// ValidatePhone checks the 8-digit login key.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return ErrPhoneFormat
	}
	return nil
}

// ValidatePIN checks the 4-digit shared secret. A 4-digit space only holds 10k values, so PIN
// checks must stay behind login throttling.
func ValidatePIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrPINFormat
	}
	return nil
}

// HashPIN returns a salted bcrypt hash of the PIN.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePIN reports whether pin matches the stored hash.
func ComparePIN(hash, pin string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
