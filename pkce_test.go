package storeauth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shopforge/storeauth/domain"
)

func TestS256Challenge(t *testing.T) {
	// Appendix B of RFC 7636.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", S256Challenge(verifier))
}

func TestVerifyPKCE(t *testing.T) {
	verifier := strings.Repeat("v", 50)
	challenge := S256Challenge(verifier)

	tests := []struct {
		name      string
		challenge string
		method    string
		verifier  string
		want      bool
	}{
		{"S256 match", challenge, domain.CodeChallengeMethodS256, verifier, true},
		{"empty method defaults to S256", challenge, "", verifier, true},
		{"S256 mismatch", challenge, domain.CodeChallengeMethodS256, strings.Repeat("w", 50), false},
		{"plain match", verifier, domain.CodeChallengeMethodPlain, verifier, true},
		{"plain mismatch", verifier, domain.CodeChallengeMethodPlain, strings.Repeat("w", 50), false},
		{"verifier below minimum length", S256Challenge("short"), domain.CodeChallengeMethodS256, "short", false},
		{"verifier above maximum length", challenge, domain.CodeChallengeMethodS256, strings.Repeat("v", 129), false},
		{"unknown method", challenge, "S512", verifier, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPKCE(tt.challenge, tt.method, tt.verifier))
		})
	}
}
