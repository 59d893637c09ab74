package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345"

func newTestVerifier(t *testing.T, issuer string) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, issuer)
	require.NoError(t, err)
	return v
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.ErrorIs(t, err, ErrEmptyJWTSecret)
}

func TestVerify(t *testing.T) {
	v := newTestVerifier(t, "bingo-auth")

	t.Run("Valid token", func(t *testing.T) {
		token, err := v.Issue("acc-42", "Abebe", time.Minute)
		require.NoError(t, err)

		claims, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "acc-42", claims.Subject)
		assert.Equal(t, "Abebe", claims.Name)
	})

	t.Run("Expired token", func(t *testing.T) {
		token, err := v.Issue("acc-42", "", -time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		other, err := NewVerifier("another-secret", "bingo-auth")
		require.NoError(t, err)
		token, err := other.Issue("acc-42", "", time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong issuer", func(t *testing.T) {
		other := newTestVerifier(t, "someone-else")
		token, err := other.Issue("acc-42", "", time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Missing subject", func(t *testing.T) {
		token, err := v.Issue("", "", time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("Non-HMAC algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "acc-42",
				Issuer:    "bingo-auth",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := newTestVerifier(t, "")

	valid, err := v.Issue("acc-7", "Lidya", time.Minute)
	require.NoError(t, err)

	router := gin.New()
	router.Use(Middleware(v))
	router.GET("/me", func(c *gin.Context) {
		id, ok := AccountID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id, "name": DisplayName(c)})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Empty header", "", http.StatusUnauthorized},
		{"Invalid format", "Token abc", http.StatusUnauthorized},
		{"Empty token", "Bearer ", http.StatusUnauthorized},
		{"Invalid token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"Valid token", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.JSONEq(t, `{"id":"acc-7","name":"Lidya"}`, w.Body.String())
			}
		})
	}
}
