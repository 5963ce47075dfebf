package rbac

import "strings"

// Role is what an operator token grants.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Permission names one guarded loader action as "resource:action". A
// trailing "*" in a policy entry covers every action of the resource.
type Permission string

const (
	PermTargetsView    Permission = "targets:view"
	PermArchiveInspect Permission = "archive:inspect"
	PermSessionCreate  Permission = "session:create"
	PermSessionView    Permission = "session:view"
	PermSessionEdit    Permission = "session:edit"
	PermPayloadHandoff Permission = "payload:handoff"
	PermHistoryView    Permission = "history:view"

	PermAll Permission = "*"
)

// covers reports whether the policy entry p grants perm.
func (p Permission) covers(perm Permission) bool {
	if p == PermAll || p == perm {
		return true
	}
	if prefix, ok := strings.CutSuffix(string(p), "*"); ok {
		return strings.HasPrefix(string(perm), prefix)
	}
	return false
}

// Policy maps each role to the permissions it holds.
type Policy map[Role][]Permission

// DefaultPolicy: viewers watch sessions, operators drive them to a handoff.
var DefaultPolicy = Policy{
	RoleViewer: {
		PermTargetsView,
		PermSessionView,
		PermHistoryView,
	},
	RoleOperator: {
		PermTargetsView,
		PermArchiveInspect,
		"session:*",
		PermPayloadHandoff,
		PermHistoryView,
	},
	RoleAdmin: {PermAll},
}

func (p Policy) Allows(role Role, perm Permission) bool {
	for _, held := range p[role] {
		if held.covers(perm) {
			return true
		}
	}
	return false
}

func (p Policy) AllowsAny(role Role, perms ...Permission) bool {
	for _, perm := range perms {
		if p.Allows(role, perm) {
			return true
		}
	}
	return false
}

func (p Policy) AllowsAll(role Role, perms ...Permission) bool {
	for _, perm := range perms {
		if !p.Allows(role, perm) {
			return false
		}
	}
	return true
}
