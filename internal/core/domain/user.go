package domain

import "time"

// Role is the coarse permission level carried by a user and its credential.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User models a stored account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor returns the identity a credential issued for u would carry.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserPatch is a partial update. A nil field is left untouched.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *Role
}

// HasChanges reports whether at least one field is set.
func (p UserPatch) HasChanges() bool {
	return p.Name != nil || p.Email != nil || p.Role != nil
}

// ChangesRole reports whether the patch touches the role field.
func (p UserPatch) ChangesRole() bool {
	return p.Role != nil
}
