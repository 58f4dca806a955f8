// Package memory is a mutex-guarded in-memory implementation of the storage
// contracts. It backs tests and the development serve mode; nothing here is
// durable.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/inkwell-blog/server/internal/storage"
)

type Store struct {
	mu sync.RWMutex

	subjects    map[string]subjectRecord
	roles       map[string]storage.Role
	rolesByName map[string]string // normalized name -> role id
	articles    map[string]storage.Article
	comments    map[string]storage.Comment
}

// subjectRecord keeps role assignment by id so role permission edits are
// visible on subsequent subject reads (live resolution).
type subjectRecord struct {
	storage.Subject
	roleIDs []string
}

func NewStore() *Store {
	return &Store{
		subjects:    make(map[string]subjectRecord),
		roles:       make(map[string]storage.Role),
		rolesByName: make(map[string]string),
		articles:    make(map[string]storage.Article),
		comments:    make(map[string]storage.Comment),
	}
}

func (s *Store) Subjects() storage.SubjectRepository { return (*subjectRepo)(s) }
func (s *Store) Roles() storage.RoleRepository       { return (*roleRepo)(s) }
func (s *Store) Articles() storage.ArticleRepository { return (*articleRepo)(s) }
func (s *Store) Comments() storage.CommentRepository { return (*commentRepo)(s) }

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type subjectRepo Store

func (r *subjectRepo) Create(_ context.Context, subject storage.Subject) (storage.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subjects {
		if existing.Email == subject.Email || existing.Username == subject.Username {
			return storage.Subject{}, storage.ErrDuplicate
		}
	}

	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	record := subjectRecord{Subject: subject}
	for _, role := range subject.Roles {
		record.roleIDs = append(record.roleIDs, role.ID)
	}
	record.Roles = nil
	r.subjects[subject.ID] = record

	return r.materialize(record), nil
}

func (r *subjectRepo) FindByID(_ context.Context, id string) (storage.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.subjects[id]
	if !ok {
		return storage.Subject{}, storage.ErrNotFound
	}
	return r.materialize(record), nil
}

func (r *subjectRepo) FindByEmail(_ context.Context, email string) (storage.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.subjects {
		if record.Email == email {
			return r.materialize(record), nil
		}
	}
	return storage.Subject{}, storage.ErrNotFound
}

func (r *subjectRepo) FindByUsername(_ context.Context, username string) (storage.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.subjects {
		if record.Username == username {
			return r.materialize(record), nil
		}
	}
	return storage.Subject{}, storage.ErrNotFound
}

func (r *subjectRepo) List(_ context.Context) ([]storage.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Subject, 0, len(r.subjects))
	for _, record := range r.subjects {
		out = append(out, r.materialize(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *subjectRepo) Update(_ context.Context, subject storage.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.subjects[subject.ID]
	if !ok {
		return storage.ErrNotFound
	}
	record.Username = subject.Username
	record.Email = subject.Email
	if subject.PasswordHash != "" {
		record.PasswordHash = subject.PasswordHash
	}
	r.subjects[subject.ID] = record
	return nil
}

func (r *subjectRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subjects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.subjects, id)
	return nil
}

func (r *subjectRepo) AssignRole(_ context.Context, subjectID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.subjects[subjectID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := r.roles[roleID]; !ok {
		return storage.ErrNotFound
	}
	for _, assigned := range record.roleIDs {
		if assigned == roleID {
			return nil
		}
	}
	record.roleIDs = append(record.roleIDs, roleID)
	r.subjects[subjectID] = record
	return nil
}

// materialize resolves the subject's current roles. Caller holds the lock.
func (r *subjectRepo) materialize(record subjectRecord) storage.Subject {
	subject := record.Subject
	subject.Roles = make([]storage.Role, 0, len(record.roleIDs))
	for _, roleID := range record.roleIDs {
		if role, ok := r.roles[roleID]; ok {
			subject.Roles = append(subject.Roles, copyRole(role))
		}
	}
	return subject
}

type roleRepo Store

func (r *roleRepo) FindByNames(_ context.Context, names []string) ([]storage.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Role, 0, len(names))
	for _, name := range names {
		if id, ok := r.rolesByName[normalize(name)]; ok {
			out = append(out, copyRole(r.roles[id]))
		}
	}
	return out, nil
}

func (r *roleRepo) EnsureRole(_ context.Context, name string) (storage.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize(name)
	if id, ok := r.rolesByName[key]; ok {
		return copyRole(r.roles[id]), nil
	}

	role := storage.Role{ID: uuid.NewString(), Name: key}
	r.roles[role.ID] = role
	r.rolesByName[key] = role.ID
	return copyRole(role), nil
}

func (r *roleRepo) List(_ context.Context) ([]storage.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, copyRole(role))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *roleRepo) SetPermissions(_ context.Context, roleID string, permissions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return storage.ErrNotFound
	}
	role.Permissions = append([]string(nil), permissions...)
	r.roles[roleID] = role
	return nil
}

func copyRole(role storage.Role) storage.Role {
	role.Permissions = append([]string(nil), role.Permissions...)
	return role
}

type articleRepo Store

func (r *articleRepo) Create(_ context.Context, article storage.Article) (storage.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	r.articles[article.ID] = article
	return article, nil
}

func (r *articleRepo) FindByID(_ context.Context, id string) (storage.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	article, ok := r.articles[id]
	if !ok {
		return storage.Article{}, storage.ErrNotFound
	}
	return article, nil
}

func (r *articleRepo) List(_ context.Context) ([]storage.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Article, 0, len(r.articles))
	for _, article := range r.articles {
		out = append(out, article)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *articleRepo) Update(_ context.Context, article storage.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[article.ID]; !ok {
		return storage.ErrNotFound
	}
	r.articles[article.ID] = article
	return nil
}

func (r *articleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.articles, id)
	for commentID, comment := range r.comments {
		if comment.ArticleID == id {
			delete(r.comments, commentID)
		}
	}
	return nil
}

type commentRepo Store

func (r *commentRepo) Create(_ context.Context, comment storage.Comment) (storage.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[comment.ID] = comment
	return comment, nil
}

func (r *commentRepo) FindByID(_ context.Context, id string) (storage.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comment, ok := r.comments[id]
	if !ok {
		return storage.Comment{}, storage.ErrNotFound
	}
	return comment, nil
}

func (r *commentRepo) ListByArticle(_ context.Context, articleID string) ([]storage.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Comment, 0)
	for _, comment := range r.comments {
		if comment.ArticleID == articleID {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *commentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}
