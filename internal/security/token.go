package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

// posKeyPrefix is the prefix used for generated POS API keys.
const posKeyPrefix = "pos_"

// GenerateOpaqueToken returns a 64-char hex token suitable for QR payloads.
func GenerateOpaqueToken() (string, error) {
	secret := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(secret), nil
}

// GeneratePOSAPIKey creates a new random POS API key string.
func GeneratePOSAPIKey() (string, error) {
	secret := make([]byte, 24)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("generate pos key: %w", err)
	}
	return posKeyPrefix + hex.EncodeToString(secret), nil
}

// GenerateNumericCode returns a zero-padded random code of the given length
// for email/phone verification.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// HashCode hashes a verification code together with the server secret so a
// leaked database cannot be replayed against live challenges.
func HashCode(secret, code string) string {
	sum := sha256.Sum256([]byte(secret + ":" + code))
	return hex.EncodeToString(sum[:])
}
