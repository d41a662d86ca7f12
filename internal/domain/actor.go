package domain

// Role is the identity role asserted by the bearer token.
type Role string

const (
	RoleReader        Role = "reader"
	RoleLibrarian     Role = "librarian"
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleReader, RoleLibrarian, RoleAdministrator:
		return true
	}
	return false
}

// Actor is the authenticated identity behind a request.
type Actor struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

// IsStaff is true for librarians and administrators.
func (a Actor) IsStaff() bool {
	return a.Role == RoleLibrarian || a.Role == RoleAdministrator
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdministrator
}

// Capability is a bit set of the ways an actor may be allowed to touch a record.
type Capability uint8

const (
	// CapabilitySelf grants access when the actor owns the record.
	CapabilitySelf Capability = 1 << iota
	// CapabilityStaff grants access to librarians and administrators.
	CapabilityStaff
	// CapabilityAdmin grants access to administrators only.
	CapabilityAdmin
)

// Can reports whether the actor holds any of caps for a record owned by ownerID.
func (a Actor) Can(caps Capability, ownerID int64) bool {
	if caps&CapabilitySelf != 0 && a.UserID == ownerID {
		return true
	}
	if caps&CapabilityStaff != 0 && a.IsStaff() {
		return true
	}
	if caps&CapabilityAdmin != 0 && a.IsAdmin() {
		return true
	}
	return false
}

// Borrower is the subset of the user record the circulation core reads.
type Borrower struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  Role   `json:"role" db:"role"`
}
