// Package auth handles device credentials: issuing raw tokens, hashing them
// for storage and pulling them off incoming requests.
package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	TokenPrefix = "em_"
	TokenHeader = "X-Device-Token"
)

// TokenHasher derives the stored form of a device token, keyed with a
// server-side pepper.
type TokenHasher struct {
	key []byte
}

func NewTokenHasher(pepper string) *TokenHasher {
	key := []byte(pepper)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &TokenHasher{key: key}
}

func (h *TokenHasher) Hash(token string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Only returned for keys over 64 bytes, which NewTokenHasher folds.
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches compares token against a stored hash in constant time.
func (h *TokenHasher) Matches(token, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(token)), []byte(hash)) == 1
}

// GenerateToken returns a new raw device token. It is shown to the operator
// once and never stored.
func GenerateToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate device token: %w", err)
	}
	return TokenPrefix + strings.ReplaceAll(id.String(), "-", ""), nil
}

// CredentialFromRequest reads the device token from the Authorization
// bearer header, falling back to X-Device-Token. Returns "" when absent.
func CredentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}
