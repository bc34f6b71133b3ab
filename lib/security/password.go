package security

import (
	"golang.org/x/crypto/bcrypt"
)

// HashToken returns the bcrypt hash stored as ADMIN_TOKEN_HASH.
func HashToken(token string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
