package core

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testStack struct {
	router   *gin.Engine
	users    *SQLiteUserRepository
	accounts *AccountService
	codec    *TokenCodec
	state    *DispatcherState
	registry *prometheus.Registry
}

func newTestStack(t *testing.T, cfg Config, status *StatusService) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	codec, err := NewTokenCodec([]byte(testSecret))
	require.NoError(t, err)

	users := NewSQLiteUserRepository(db)
	state := NewDispatcherState("test-instance", "localhost", 2, 0)
	reg := prometheus.NewRegistry()
	d := NewDispatcher(2, WithDispatcherState(state), WithMetricsRegisterer(reg))
	accounts := NewAccountService(users, codec, d, bcrypt.MinCost, nil)

	router := NewRouter(cfg, RouterDeps{
		Accounts: accounts,
		Codec:    codec,
		State:    state,
		Status:   status,
		Gatherer: reg,
	})
	return &testStack{router: router, users: users, accounts: accounts, codec: codec, state: state, registry: reg}
}

func (s *testStack) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testStack) register(t *testing.T, username, email, password string) UserResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/users", gin.H{"user": gin.H{
		"username": username, "email": email, "password": password,
	}}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeUser(t, w)
}

func decodeUser(t *testing.T, w *httptest.ResponseRecorder) UserResponse {
	t.Helper()
	var env userEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.User
}

func decodeErrors(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Errors struct {
			Body []string `json:"body"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Errors.Body
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func strPtr(s string) *string { return &s }
