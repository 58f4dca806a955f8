package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func newAuthTestHandler(env *testEnv, adminCode string) *AuthHandler {
	return NewAuthHandler(env.store.Subjects(), env.store.Roles(), env.tokens, adminCode, "test")
}

func postJSON(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	env := newTestEnv(t)
	handler := newAuthTestHandler(env, "secret-code")

	res := httptest.NewRecorder()
	handler.Register(res, postJSON("/api/v1/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"hunter2hunter2"}`))

	require.Equal(t, http.StatusCreated, res.Code)

	subject, err := env.store.Subjects().FindByEmail(t.Context(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"user"}, subject.RoleNames())
	require.NotEqual(t, "hunter2hunter2", subject.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(subject.PasswordHash), []byte("hunter2hunter2")))
}

func TestRegisterWithAdminCodeGrantsAdmin(t *testing.T) {
	env := newTestEnv(t)
	handler := newAuthTestHandler(env, "secret-code")

	res := httptest.NewRecorder()
	handler.Register(res, postJSON("/api/v1/auth/register",
		`{"username":"root","email":"root@example.com","password":"hunter2hunter2","adminCode":"secret-code"}`))

	require.Equal(t, http.StatusCreated, res.Code)

	subject, err := env.store.Subjects().FindByEmail(t.Context(), "root@example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, subject.RoleNames())
}

func TestRegisterWrongAdminCodeFallsBackToDefault(t *testing.T) {
	env := newTestEnv(t)
	handler := newAuthTestHandler(env, "secret-code")

	res := httptest.NewRecorder()
	handler.Register(res, postJSON("/api/v1/auth/register",
		`{"username":"mallory","email":"mallory@example.com","password":"hunter2hunter2","adminCode":"wrong"}`))

	require.Equal(t, http.StatusCreated, res.Code)

	subject, err := env.store.Subjects().FindByEmail(t.Context(), "mallory@example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"user"}, subject.RoleNames())
}

func TestRegisterDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)
	handler := newAuthTestHandler(env, "")

	body := `{"username":"alice","email":"alice@example.com","password":"hunter2hunter2"}`
	handler.Register(httptest.NewRecorder(), postJSON("/api/v1/auth/register", body))

	res := httptest.NewRecorder()
	handler.Register(res, postJSON("/api/v1/auth/register", body))
	require.Equal(t, http.StatusConflict, res.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	handler := newAuthTestHandler(env, "")

	tests := []struct {
		name string
		body string
	}{
		{"short username", `{"username":"al","email":"a@example.com","password":"hunter2hunter2"}`},
		{"bad email", `{"username":"alice","email":"nope","password":"hunter2hunter2"}`},
		{"short password", `{"username":"alice","email":"a@example.com","password":"short"}`},
		{"not json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := httptest.NewRecorder()
			handler.Register(res, postJSON("/api/v1/auth/register", tt.body))
			require.Equal(t, http.StatusBadRequest, res.Code)
			require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
		})
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	env := newTestEnv(t)
	handler := newAuthTestHandler(env, "secret-code")

	handler.Register(httptest.NewRecorder(), postJSON("/api/v1/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"hunter2hunter2","adminCode":"secret-code"}`))

	res := httptest.NewRecorder()
	handler.Login(res, postJSON("/api/v1/auth/login",
		`{"email":"alice@example.com","password":"hunter2hunter2"}`))
	require.Equal(t, http.StatusOK, res.Code)

	var body loginResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, "alice", body.User.Username)
	require.Equal(t, []string{"admin"}, body.User.Roles)

	claims, err := env.tokens.Verify(body.Token, time.Now())
	require.NoError(t, err)
	require.Equal(t, body.User.ID, claims.Subject)
	require.Equal(t, []string{"admin"}, claims.RoleNames())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	handler := newAuthTestHandler(env, "")

	handler.Register(httptest.NewRecorder(), postJSON("/api/v1/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"hunter2hunter2"}`))

	// Wrong password and unknown account produce the same answer, so a
	// caller cannot probe which emails exist.
	wrongPassword := httptest.NewRecorder()
	handler.Login(wrongPassword, postJSON("/api/v1/auth/login",
		`{"email":"alice@example.com","password":"wrong-password"}`))
	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)

	unknownEmail := httptest.NewRecorder()
	handler.Login(unknownEmail, postJSON("/api/v1/auth/login",
		`{"email":"nobody@example.com","password":"wrong-password"}`))
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	require.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}
