package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/server/internal/api/middleware"
	"github.com/inkwell-blog/server/internal/auth"
	"github.com/inkwell-blog/server/internal/realtime"
	"github.com/inkwell-blog/server/internal/storage"
	"github.com/inkwell-blog/server/internal/storage/memory"
)

type testEnv struct {
	store      *memory.Store
	tokens     *auth.TokenManager
	authorizer *auth.Authorizer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	return &testEnv{
		store:      store,
		tokens:     auth.NewTokenManager("test-secret", 24*time.Hour, "http://localhost:8080"),
		authorizer: auth.NewAuthorizer(store.Subjects()),
	}
}

// createSubject registers a subject holding the named role, creating the role
// on first use the same way registration does.
func (e *testEnv) createSubject(t *testing.T, username, roleName string, permissions ...string) storage.Subject {
	t.Helper()
	ctx := context.Background()

	role, err := e.store.Roles().EnsureRole(ctx, roleName)
	require.NoError(t, err)
	if len(permissions) > 0 {
		require.NoError(t, e.store.Roles().SetPermissions(ctx, role.ID, permissions))
		role.Permissions = permissions
	}

	subject, err := e.store.Subjects().Create(ctx, storage.Subject{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "irrelevant",
		Roles:        []storage.Role{role},
	})
	require.NoError(t, err)
	return subject
}

func (e *testEnv) createArticle(t *testing.T, authorID, title string) storage.Article {
	t.Helper()
	article, err := e.store.Articles().Create(context.Background(), storage.Article{
		Title:    title,
		Content:  "<p>body</p>",
		AuthorID: authorID,
	})
	require.NoError(t, err)
	return article
}

// withClaims attaches verified claims the way the Authenticate middleware
// would have.
func withClaims(r *http.Request, subjectID string) *http.Request {
	claims := &auth.Claims{}
	claims.Subject = subjectID
	return r.WithContext(middleware.ContextWithClaims(r.Context(), claims))
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	rooms  []string
	events []realtime.Event
}

func (n *recordingNotifier) Publish(roomKey string, event realtime.Event) {
	n.rooms = append(n.rooms, roomKey)
	n.events = append(n.events, event)
}
