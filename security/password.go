// Package security contains everything related to the security of user data
package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost 10 keeps hashing fast enough for interactive logins while staying
// expensive for offline guessing
const bcryptCost = 10

var ErrPasswordTooLong = errors.New("password is too long to hash")

func HashPassword(p string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(p), bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}

	return string(h), nil
}

// VerifyPassword compares a plaintext password p with the stored bcrypt
// hash. bcrypt's comparison is constant-time on the derived key.
func VerifyPassword(p, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}
