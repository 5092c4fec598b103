package domain

import "time"

// UserRole controls what a user may change. Admins gate every mutation.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether r is a known user role.
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// User is an authenticated catalog user.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Role         UserRole  `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// SignUpRequest is the request body for registering with a password.
type SignUpRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role,omitempty"`
}

// SignInRequest is the request body for password sign in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DemoSignInRequest is the request body for password-less demo sign in.
type DemoSignInRequest struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role,omitempty"`
}

// UpdateProfileRequest is the request body for a user editing their own profile.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// UpdateUserRoleRequest is the request body for an admin changing a user's role.
type UpdateUserRoleRequest struct {
	Role UserRole `json:"role"`
}
