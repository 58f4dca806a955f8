package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkwell-blog/server/internal/storage"
)

var (
	// ErrUnauthenticated: no valid claims accompany the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSubjectNotFound: the claims reference a subject that no longer
	// resolves in storage.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrPermissionDenied: valid identity, insufficient rights.
	ErrPermissionDenied = errors.New("permission denied")
)

// PermissionSet is the resolved set of permission strings for a subject.
// Wildcard marks a subject holding the wildcard role: Has reports true for
// every permission regardless of the explicit set.
type PermissionSet struct {
	Wildcard    bool
	permissions map[string]struct{}
}

func NewPermissionSet(permissions []string, wildcard bool) PermissionSet {
	set := PermissionSet{Wildcard: wildcard, permissions: make(map[string]struct{}, len(permissions))}
	for _, p := range permissions {
		set.permissions[p] = struct{}{}
	}
	return set
}

// Has reports whether the set grants the permission.
func (s PermissionSet) Has(permission string) bool {
	if s.Wildcard {
		return true
	}
	_, ok := s.permissions[permission]
	return ok
}

// Permissions returns the explicit permission strings. Empty for a pure
// wildcard holder whose roles carry no explicit permissions.
func (s PermissionSet) Permissions() []string {
	out := make([]string, 0, len(s.permissions))
	for p := range s.permissions {
		out = append(out, p)
	}
	return out
}

// Authorizer resolves role-based permissions against live storage. Token
// claims embed the role names assigned at issuance; this engine deliberately
// re-reads the subject's current assignment instead, so revoking a role takes
// effect before token expiry for anything gated through here.
type Authorizer struct {
	subjects storage.SubjectRepository
}

func NewAuthorizer(subjects storage.SubjectRepository) *Authorizer {
	return &Authorizer{subjects: subjects}
}

// ResolvePermissions loads the subject's current roles and unions their
// permission sets. Any wildcard role short-circuits to the universal set.
func (a *Authorizer) ResolvePermissions(ctx context.Context, subjectID string) (PermissionSet, error) {
	subject, err := a.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return PermissionSet{}, ErrSubjectNotFound
		}
		return PermissionSet{}, fmt.Errorf("resolve subject %s: %w", subjectID, err)
	}

	var permissions []string
	for _, role := range subject.Roles {
		permissions = append(permissions, role.Permissions...)
	}
	return NewPermissionSet(permissions, HasWildcardRole(subject.RoleNames())), nil
}

// Authorize admits the request when the subject's resolved permission set
// grants the required permission. Deny reasons are stable and distinct:
// ErrUnauthenticated, ErrSubjectNotFound, ErrPermissionDenied.
func (a *Authorizer) Authorize(ctx context.Context, claims *Claims, permission string) error {
	if claims == nil || claims.Subject == "" {
		return ErrUnauthenticated
	}

	set, err := a.ResolvePermissions(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if !set.Has(permission) {
		return ErrPermissionDenied
	}
	return nil
}

// AuthorizeSelfOrRole admits the request when the acting subject owns the
// resource, or failing that, when it holds the named role. Ownership and
// role membership are two orthogonal predicates combined with OR; they are
// never folded into a single permission string.
func (a *Authorizer) AuthorizeSelfOrRole(ctx context.Context, claims *Claims, resourceOwnerID, role string) error {
	if claims == nil || claims.Subject == "" {
		return ErrUnauthenticated
	}
	if resourceOwnerID != "" && claims.Subject == resourceOwnerID {
		return nil
	}

	subject, err := a.subjects.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("resolve subject %s: %w", claims.Subject, err)
	}

	want := NormalizeRoleName(role)
	for _, assigned := range subject.Roles {
		name := NormalizeRoleName(assigned.Name)
		if name == want || name == WildcardRole {
			return nil
		}
	}
	return ErrPermissionDenied
}
