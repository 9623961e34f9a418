package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrAdminKeyMismatch is returned when the presented key does not match.
var ErrAdminKeyMismatch = errors.New("admin key mismatch")

// HashAdminKey produces the bcrypt hash stored in ADMIN_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAdminKey checks a presented key against the configured hash.
func VerifyAdminKey(hash, key string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrAdminKeyMismatch
	}
	return nil
}
