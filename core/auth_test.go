package core

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateRouter(t *testing.T, codec *TokenCodec) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ResponseTranslator(nil))
	r.GET("/protected", AuthGate(codec, nil), func(c *gin.Context) {
		ac, ok := AuthContextFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"subject": ac.Subject})
	})
	return r
}

func TestAuthGateAcceptsBothSchemes(t *testing.T) {
	codec, err := NewTokenCodec([]byte(testSecret))
	require.NoError(t, err)
	token, err := codec.Mint(7, "alice")
	require.NoError(t, err)
	r := newGateRouter(t, codec)

	for _, scheme := range []string{"Bearer", "Token"} {
		t.Run(scheme, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", scheme+" "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"subject":7}`, w.Body.String())
		})
	}
}

func TestAuthGateFailuresAreIndistinguishable(t *testing.T) {
	codec, err := NewTokenCodec([]byte(testSecret))
	require.NoError(t, err)
	valid, err := codec.Mint(7, "alice")
	require.NoError(t, err)

	old, err := NewTokenCodec([]byte(testSecret), WithClock(func() time.Time {
		return time.Now().Add(-TokenTTL - time.Minute)
	}))
	require.NoError(t, err)
	expired, err := old.Mint(7, "alice")
	require.NoError(t, err)

	r := newGateRouter(t, codec)
	cases := map[string]string{
		"missing header":   "",
		"scheme only":      "Bearer",
		"empty token":      "Bearer ",
		"no scheme":        valid,
		"unknown scheme":   "Basic " + valid,
		"lowercase scheme": "bearer " + valid,
		"extra field":      "Bearer " + valid + " extra",
		"invalid token":    "Bearer not.a.token",
		"expired token":    "Token " + expired,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Empty(t, w.Body.String())
		})
	}
}

func TestParseAuthorization(t *testing.T) {
	tok, ok := parseAuthorization("Token abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = parseAuthorization("Bearer  abc")
	assert.False(t, ok)
}
