// Package auth implements the identity and session primitives: password
// hashing, stateless session tokens, per-request auth contexts, and the
// ownership guard applied by mutating handlers.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000
)

// dummyPasswordHash is verified when a login attempt targets an unknown
// email so that the missing-account path performs the same key derivation
// as the wrong-password path. It is not a credential and matches nothing.
const dummyPasswordHash = "pbkdf2$sha256$120000$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// HashPassword derives a salted digest of the password. A fresh random
// salt is drawn per call, so repeated hashes of the same input differ.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

// VerifyPassword recomputes the digest with the embedded salt and
// parameters and compares in constant time. Malformed digests, empty
// input, and mismatches all report false; callers cannot tell a corrupt
// record apart from a wrong password.
func VerifyPassword(encodedHash, candidate string) bool {
	if encodedHash == "" || candidate == "" {
		return false
	}
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 || parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return false
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(storedKey) == 0 {
		return false
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	return subtle.ConstantTimeCompare(derived, storedKey) == 1
}

// VerifyDummyPassword burns the same key-derivation cost as a real
// verification without ever succeeding. Login uses it when the email does
// not resolve to an account.
func VerifyDummyPassword(candidate string) {
	VerifyPassword(dummyPasswordHash, candidate)
}
