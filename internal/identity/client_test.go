package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestSignIn(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "key-1", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  signedToken(t, exp),
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user": map[string]any{
				"id":    "u-1",
				"email": "alice@example.com",
				"user_metadata": map[string]string{
					"role": "admin",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", nil)
	user, pair, err := c.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "admin", user.Metadata["role"])
	assert.Equal(t, "rt-1", pair.RefreshToken)
	assert.InDelta(t, time.Hour, pair.ExpiresIn, float64(5*time.Second))
}

func TestSignInBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, _, err := c.SignIn(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rt-old", body["refresh_token"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "opaque-token",
			"refresh_token": "rt-new",
			"expires_in":    1800,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	pair, err := c.Refresh(context.Background(), "rt-old")
	require.NoError(t, err)

	assert.Equal(t, "rt-new", pair.RefreshToken)
	assert.Equal(t, 30*time.Minute, pair.ExpiresIn, "opaque token falls back to expires_in")
}

func TestRefreshConsumedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.Refresh(context.Background(), "rt-used")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignOut(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	require.NoError(t, c.SignOut(context.Background(), "at-1"))
	assert.Equal(t, "Bearer at-1", gotAuth)
}
