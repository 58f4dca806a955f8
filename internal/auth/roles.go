package auth

import (
	"encoding/json"
	"strings"
)

// WildcardRole satisfies every permission check by name alone, independent
// of its explicit permission list.
const WildcardRole = "admin"

// DefaultRole is assigned to subjects registered without an admin code.
const DefaultRole = "user"

// RoleRef is a role reference as it arrives from upstream data, which is
// inconsistent about shape: sometimes a bare name ("admin"), sometimes a
// structured {"id": "...", "name": "admin"} record. Both forms normalize
// into this descriptor at the boundary; nothing past the boundary branches
// on representation.
type RoleRef struct {
	ID   string
	Name string
}

func (r *RoleRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		r.Name = NormalizeRoleName(name)
		return nil
	}

	var record struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	r.ID = record.ID
	r.Name = NormalizeRoleName(record.Name)
	return nil
}

func (r RoleRef) MarshalJSON() ([]byte, error) {
	if r.ID == "" {
		return json.Marshal(r.Name)
	}
	return json.Marshal(struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}{ID: r.ID, Name: r.Name})
}

// NormalizeRoleName canonicalizes a role name for comparison.
func NormalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeRoleNames canonicalizes a list of role names, dropping empties.
func NormalizeRoleNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if normalized := NormalizeRoleName(name); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

// HasWildcardRole reports whether any of the names is the wildcard role.
func HasWildcardRole(names []string) bool {
	for _, name := range names {
		if NormalizeRoleName(name) == WildcardRole {
			return true
		}
	}
	return false
}
