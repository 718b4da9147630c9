// Package rbac maps roles to permission sets and answers capability queries.
package rbac

import (
	"fmt"

	"tenant-access-gate/backend/internal/config"
	userdomain "tenant-access-gate/backend/internal/user/domain"
)

// Permission names a capability, e.g. "students.write" or "platform.settings.write".
type Permission string

// Wildcard grants every permission when listed for a role (used for the god role).
const Wildcard Permission = "*"

// Engine answers permission queries against an immutable role → permission
// table computed once at process start. Reads are O(1) and safe for
// unsynchronized concurrent use; changing the table requires a restart.
type Engine struct {
	sets      map[userdomain.Role]map[Permission]struct{}
	wildcards map[userdomain.Role]struct{}
}

// NewEngine builds the engine from the gate file's permissions table.
// Unknown role names fail construction.
func NewEngine(gf *config.GateFile) (*Engine, error) {
	e := &Engine{
		sets:      make(map[userdomain.Role]map[Permission]struct{}, len(gf.Permissions)),
		wildcards: make(map[userdomain.Role]struct{}),
	}
	for roleName, perms := range gf.Permissions {
		role, err := userdomain.ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("permissions: %w", err)
		}
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			if Permission(p) == Wildcard {
				e.wildcards[role] = struct{}{}
				continue
			}
			if p == "" {
				return nil, fmt.Errorf("permissions: role %q lists an empty permission", roleName)
			}
			set[Permission(p)] = struct{}{}
		}
		e.sets[role] = set
	}
	return e, nil
}

// HasPermission reports whether the role holds the permission.
func (e *Engine) HasPermission(role userdomain.Role, perm Permission) bool {
	if _, ok := e.wildcards[role]; ok {
		return true
	}
	_, ok := e.sets[role][perm]
	return ok
}

// HasAny reports whether the role holds at least one of the permissions.
// Vacuously false for an empty list.
func (e *Engine) HasAny(role userdomain.Role, perms ...Permission) bool {
	for _, p := range perms {
		if e.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the role holds every listed permission.
// Vacuously true for an empty list.
func (e *Engine) HasAll(role userdomain.Role, perms ...Permission) bool {
	for _, p := range perms {
		if !e.HasPermission(role, p) {
			return false
		}
	}
	return true
}
