package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const (
	// codeBytes is the entropy of an authorization code
	codeBytes = 32

	// secretBytes is the entropy of a client secret
	secretBytes = 32
)

// generateSecureCode returns length random bytes hex encoded
func generateSecureCode(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashSecret returns the hex SHA-256 of a secret or code
func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// codeKey is the storage key of an authorization code. Only a hash is kept,
// and binding the client id means another client cannot consume the code.
func codeKey(clientID, code string) string {
	return hashSecret(clientID + ":" + code)
}
