package user

import "time"

// Role gates what an account may do. Viewers are read-only, Editors and
// Admins may upload and delete their own content, Admins additionally
// manage users and moderate any video.
type Role string

const (
	RoleViewer Role = "Viewer"
	RoleEditor Role = "Editor"
	RoleAdmin  Role = "Admin"
)

// Valid reports whether the role is one of the fixed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// User is an account on the platform.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated caller extracted from a request token.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

// IsAdmin reports whether the identity carries the Admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
