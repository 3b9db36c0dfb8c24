package models

// Role is the platform role attached to an authenticated actor
type Role string

// Role values issued by the identity collaborator
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Anonymous reports whether no identity is attached
func (a Actor) Anonymous() bool {
	return a.ID == ""
}
