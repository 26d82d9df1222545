package models

import "fmt"

// Role is the closed set of actor roles. Authorization decisions go through
// the predicate methods below rather than string comparisons in handlers.
type Role string

const (
	RoleUser  Role = "user"
	RoleDev   Role = "dev"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleDev, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanTriage reports whether the role may change ticket status at all.
// Devs are further restricted to tickets assigned to them (checked by the engine).
func (r Role) CanTriage() bool { return r == RoleAdmin || r == RoleDev }

// CanAssign reports whether the role may change the assignee.
func (r Role) CanAssign() bool { return r == RoleAdmin }

// CanSeeInternal reports whether internal notes and internal history are visible.
func (r Role) CanSeeInternal() bool { return r == RoleAdmin || r == RoleDev }

// CanDelete reports whether the role may delete tickets.
func (r Role) CanDelete() bool { return r == RoleAdmin }

// Actor is the authenticated identity injected into every workflow call.
// It is established once per request by the auth middleware and never
// re-derived inside the engine.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
