package shared

// Role is the access role attached to the current identity. Session issuance
// is handled by an external collaborator; this subsystem only consumes the
// resolved role.
type Role string

const (
	RoleCoordinator   Role = "coordinator"
	RoleAccountant    Role = "accountant"
	RoleAdministrator Role = "administrator"
	RoleOther         Role = "other"
)

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleCoordinator, RoleAccountant, RoleAdministrator, RoleOther:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// CanManageDocuments reports whether the role may upload documents and void
// records. Every other role is read-only.
func (r Role) CanManageDocuments() bool {
	switch r {
	case RoleCoordinator, RoleAccountant, RoleAdministrator:
		return true
	}
	return false
}

// Identity is the opaque current-user input supplied by the auth
// collaborator.
type Identity struct {
	Subject string
	Role    Role
}
