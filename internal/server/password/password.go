// Package password wraps bcrypt hashing for user passwords. Refresh tokens
// are not hashed here; they are high-entropy and use a fast digest instead
// (see the services package).
package password

import "golang.org/x/crypto/bcrypt"

// Hash returns a salted bcrypt hash of the plaintext password.
func Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches the stored hash. bcrypt's
// comparison is constant-time with respect to the password.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
