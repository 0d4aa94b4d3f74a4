// Package password wraps bcrypt hashing for user credentials.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

const cost = bcrypt.DefaultCost

// Hash hashes a plaintext password.
func Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks a plaintext password against a stored hash.
func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
