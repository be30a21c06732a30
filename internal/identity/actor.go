package identity

// Role is the coarse-grained role attached to every authenticated request.
type Role string

const (
	RoleClient Role = "client"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleClient, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who is performing an operation. Identity is verified
// upstream (API gateway authorizer); workflows receive it as an explicit
// parameter, never from ambient state.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSeller() bool { return a.Role == RoleSeller }
func (a Actor) IsClient() bool { return a.Role == RoleClient }
