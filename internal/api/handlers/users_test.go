package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/server/internal/auth"
)

func usersMux(env *testEnv) *http.ServeMux {
	handler := NewUsersHandler(env.store.Subjects(), env.authorizer, "test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users", handler.List)
	mux.HandleFunc("GET /api/v1/users/{id}", handler.Get)
	mux.HandleFunc("PUT /api/v1/users/{id}", handler.Update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", handler.Delete)
	return mux
}

func TestGetUserSelfOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	mux := usersMux(env)
	alice := env.createSubject(t, "alice", auth.DefaultRole)
	bob := env.createSubject(t, "bob", auth.DefaultRole)
	admin := env.createSubject(t, "root", auth.WildcardRole)

	get := func(targetID, actorID string) *httptest.ResponseRecorder {
		req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/users/"+targetID, nil), actorID)
		res := httptest.NewRecorder()
		mux.ServeHTTP(res, req)
		return res
	}

	// Self.
	res := get(alice.ID, alice.ID)
	require.Equal(t, http.StatusOK, res.Code)

	var body userInfo
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, "alice", body.Username)
	require.Equal(t, []string{"user"}, body.Roles)
	// Password material never leaves the storage layer.
	require.NotContains(t, res.Body.String(), "password")

	// Another plain user is refused; an admin is not.
	require.Equal(t, http.StatusForbidden, get(alice.ID, bob.ID).Code)
	require.Equal(t, http.StatusOK, get(alice.ID, admin.ID).Code)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	mux := usersMux(env)
	alice := env.createSubject(t, "alice", auth.DefaultRole)
	env.createSubject(t, "bob", auth.DefaultRole)

	update := func(targetID, actorID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+targetID, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		mux.ServeHTTP(res, withClaims(req, actorID))
		return res
	}

	res := update(alice.ID, alice.ID, `{"username":"alicia","email":"alicia@example.com"}`)
	require.Equal(t, http.StatusOK, res.Code)

	updated, err := env.store.Subjects().FindByID(t.Context(), alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alicia", updated.Username)
	require.Equal(t, "alicia@example.com", updated.Email)

	// Colliding with another account's username is a conflict.
	res = update(alice.ID, alice.ID, `{"username":"bob","email":"alicia@example.com"}`)
	require.Equal(t, http.StatusConflict, res.Code)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	mux := usersMux(env)
	alice := env.createSubject(t, "alice", auth.DefaultRole)
	bob := env.createSubject(t, "bob", auth.DefaultRole)

	// A stranger cannot delete someone else's account.
	req := withClaims(httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+alice.ID, nil), bob.ID)
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)

	// Self-deletion works.
	req = withClaims(httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+alice.ID, nil), alice.ID)
	res = httptest.NewRecorder()
	mux.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	_, err := env.store.Subjects().FindByID(t.Context(), alice.ID)
	require.Error(t, err)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	mux := usersMux(env)
	env.createSubject(t, "alice", auth.DefaultRole)
	env.createSubject(t, "bob", auth.DefaultRole)

	// Route-level permission gating is the router's concern; the handler
	// itself just renders the collection.
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))
	require.Equal(t, http.StatusOK, res.Code)

	var listed []userInfo
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	require.Equal(t, "alice", listed[0].Username)
	require.NotContains(t, res.Body.String(), "password")
}
