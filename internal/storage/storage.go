// Package storage defines the persistence contracts and domain records the
// rest of the server depends on. Two implementations exist: postgres for
// production and memory for tests and the no-database serve mode.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Subject is an account that can authenticate and hold roles.
type Subject struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

// RoleNames returns the names of the subject's roles in assignment order.
func (s Subject) RoleNames() []string {
	names := make([]string, 0, len(s.Roles))
	for _, role := range s.Roles {
		names = append(names, role.Name)
	}
	return names
}

// Role is a named grant of permissions. The permission list is advisory for
// the wildcard role, whose holders pass every permission check.
type Role struct {
	ID          string
	Name        string
	Permissions []string
}

type Article struct {
	ID        string
	Title     string
	Content   string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Comment struct {
	ID        string
	ArticleID string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

type SubjectRepository interface {
	Create(ctx context.Context, subject Subject) (Subject, error)
	FindByID(ctx context.Context, id string) (Subject, error)
	FindByEmail(ctx context.Context, email string) (Subject, error)
	FindByUsername(ctx context.Context, username string) (Subject, error)
	List(ctx context.Context) ([]Subject, error)
	Update(ctx context.Context, subject Subject) error
	Delete(ctx context.Context, id string) error
	AssignRole(ctx context.Context, subjectID, roleID string) error
}

type RoleRepository interface {
	FindByNames(ctx context.Context, names []string) ([]Role, error)
	// EnsureRole returns the role with the given name, creating it if it
	// does not exist yet. Roles come into being lazily on first reference.
	EnsureRole(ctx context.Context, name string) (Role, error)
	List(ctx context.Context) ([]Role, error)
	SetPermissions(ctx context.Context, roleID string, permissions []string) error
}

type ArticleRepository interface {
	Create(ctx context.Context, article Article) (Article, error)
	FindByID(ctx context.Context, id string) (Article, error)
	List(ctx context.Context) ([]Article, error)
	Update(ctx context.Context, article Article) error
	Delete(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment Comment) (Comment, error)
	FindByID(ctx context.Context, id string) (Comment, error)
	ListByArticle(ctx context.Context, articleID string) ([]Comment, error)
	Delete(ctx context.Context, id string) error
}

// Repository bundles the per-aggregate repositories behind one handle.
type Repository interface {
	Subjects() SubjectRepository
	Roles() RoleRepository
	Articles() ArticleRepository
	Comments() CommentRepository
}
