package profile

import (
	"time"

	"github.com/gofrs/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// IsStaff reports whether the role works the order queue.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleManager
}

// Profile mirrors an account of the hosted auth service. Rows are created by
// that service; this application only reads them.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
