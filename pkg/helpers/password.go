package helpers

import "golang.org/x/crypto/bcrypt"

// ErrPasswordTooLong is returned by HashPassword for input over 72 bytes.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// PasswordCost is the bcrypt cost used by HashPassword. Tests lower it.
var PasswordCost = bcrypt.DefaultCost

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
