package storeauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/shopforge/storeauth/domain"
)

// PKCE code verifier length bounds, RFC 7636 §4.1.
const (
	MinCodeVerifierLength = 43
	MaxCodeVerifierLength = 128
)

// S256Challenge derives the S256 code challenge for a verifier:
// base64url(SHA256(verifier)), unpadded.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE checks a code verifier against the challenge recorded at
// authorization time. Comparison is constant-time in both methods.
func VerifyPKCE(challenge, method, verifier string) bool {
	if len(verifier) < MinCodeVerifierLength || len(verifier) > MaxCodeVerifierLength {
		return false
	}

	switch method {
	case domain.CodeChallengeMethodPlain:
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) == 1
	case domain.CodeChallengeMethodS256, "":
		calculated := S256Challenge(verifier)
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(calculated)) == 1
	default:
		return false
	}
}
