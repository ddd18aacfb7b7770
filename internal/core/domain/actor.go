package domain

// Actor is the identity resolved from a verified credential. It lives for the
// duration of one request and is never re-read from storage.
type Actor struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AuthorizeMutation enforces the owner-or-admin rule for update/delete of a
// specific user. Admins always pass. Anyone else may only target their own id
// and may never change a role, including their own.
func AuthorizeMutation(actor Actor, targetID int64, changesRole bool) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.ID != targetID {
		return ErrNotOwner
	}
	if changesRole {
		return ErrRoleChangeForbidden
	}
	return nil
}
