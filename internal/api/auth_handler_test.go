package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Register(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			body:       RegisterRequest{Email: "carol@example.com", Username: "carol", Password: "supersecret", FullName: "Carol"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duplicate email",
			body:       RegisterRequest{Email: "alice@example.com", Username: "alice2", Password: "supersecret"},
			wantStatus: http.StatusConflict,
			wantError:  "Email already registered",
		},
		{
			name:       "duplicate username",
			body:       RegisterRequest{Email: "alice2@example.com", Username: "alice", Password: "supersecret"},
			wantStatus: http.StatusConflict,
			wantError:  "Username already taken",
		},
		{
			name:       "invalid email",
			body:       RegisterRequest{Email: "not-an-email", Username: "dave", Password: "supersecret"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid email: invalid email format",
		},
		{
			name:       "short password",
			body:       RegisterRequest{Email: "dave@example.com", Username: "dave", Password: "short"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid password: must be at least 8",
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorMessage(t, rr))
				return
			}
			user := decodeBody[UserResponse](t, rr)
			assert.Equal(t, "carol@example.com", user.Email)
			assert.Equal(t, "carol", user.Username)
			assert.True(t, user.IsActive)
			assert.NotContains(t, rr.Body.String(), "supersecret")
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	token := decodeBody[TokenResponse](t, rr)
	assert.Equal(t, "issued-token", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.NotEmpty(t, token.ExpiresAt)

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Incorrect email or password", errorMessage(t, rr))

	rr = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Incorrect email or password", errorMessage(t, rr))
}

func TestAuthHandler_Me(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/auth/me", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/auth/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody[UserResponse](t, rr)
	assert.Equal(t, env.alice.ID, me.ID)
	assert.NotContains(t, rr.Body.String(), "hashed")

	fullName := "Alice Liddell"
	rr = env.do(t, http.MethodPut, "/api/auth/me", aliceToken, UpdateProfileRequest{FullName: &fullName})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Alice Liddell", decodeBody[UserResponse](t, rr).FullName)

	taken := "bob"
	rr = env.do(t, http.MethodPut, "/api/auth/me", aliceToken, UpdateProfileRequest{Username: &taken})
	assert.Equal(t, http.StatusConflict, rr.Code)
}
