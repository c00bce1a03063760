package hasher

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const Cost = bcrypt.DefaultCost

var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword returns the bcrypt hash of pw in the form expected by API_PASSWORD_HASH.
func HashPassword(pw []byte) (string, error) {
	if len(bytes.TrimSpace(pw)) == 0 {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword(pw, Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func PasswordCorrect(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Credentials is a single API user.
type Credentials struct {
	Username     string
	PasswordHash string
}

func (c Credentials) Enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// Check compares the username in constant time before checking the password.
func (c Credentials) Check(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) != 1 {
		return false
	}
	return PasswordCorrect(password, c.PasswordHash)
}
