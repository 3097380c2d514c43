package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *OAuth2Error
		want int
	}{
		{NewInvalidClient("bad credentials"), http.StatusUnauthorized},
		{NewUnauthorized("missing bearer token"), http.StatusUnauthorized},
		{NewInsufficientScope("orders.write required"), http.StatusForbidden},
		{NewServerError("boom"), http.StatusInternalServerError},
		{NewInvalidRequest("missing parameter"), http.StatusBadRequest},
		{NewInvalidGrant("code already used"), http.StatusBadRequest},
		{NewInvalidScope("unknown scope"), http.StatusBadRequest},
		{NewUnsupportedGrantType(), http.StatusBadRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), "code %s", tt.err.Code)
	}
}

func TestWithState(t *testing.T) {
	base := NewAccessDenied()
	withState := base.WithState("abc")

	assert.Equal(t, "abc", withState.State)
	assert.Empty(t, base.State, "WithState must not mutate the original")
	assert.Equal(t, base.Code, withState.Code)
}

func TestErrorString(t *testing.T) {
	err := NewInvalidGrant("code expired")
	assert.Equal(t, "invalid_grant: code expired", err.Error())
}

func TestPKCEErrorsUseInvalidGrant(t *testing.T) {
	assert.Equal(t, InvalidGrant, NewPKCERequired().Code)
	assert.Equal(t, InvalidGrant, NewInvalidPKCE("mismatch").Code)
}
