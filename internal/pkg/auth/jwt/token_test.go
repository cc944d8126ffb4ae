package jwt

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken(&Payload{Name: "alice"}, testSecret, time.Minute)
	require.NoError(t, err)

	payload, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.Name)
	assert.Equal(t, TokenIssuer, payload.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(&Payload{Name: "alice"}, testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "other")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateToken(&Payload{Name: "alice"}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestPayloadFromRequest(t *testing.T) {
	token, err := GenerateToken(&Payload{Name: "bob"}, testSecret, time.Minute)
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/app", nil)
		payload, err := PayloadFromRequest(r, testSecret)
		assert.NoError(t, err)
		assert.Nil(t, payload)
	})

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/app", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		payload, err := PayloadFromRequest(r, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "bob", payload.Name)
	})

	t.Run("query parameter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/app?token="+token, nil)
		payload, err := PayloadFromRequest(r, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "bob", payload.Name)
	})

	t.Run("invalid token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/app?token=garbage", nil)
		_, err := PayloadFromRequest(r, testSecret)
		assert.Error(t, err)
	})
}
