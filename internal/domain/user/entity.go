// internal/domain/user/entity.go
package user

import (
	"database/sql"
	"time"
)

type UserRole string
type UserStatus string

const (
	RoleCustomer   UserRole = "customer"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"

	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

type User struct {
	ID       int64  `json:"id" db:"id"`
	Email    string `json:"email" db:"email"`
	FullName string `json:"full_name" db:"full_name"`
	Phone    sql.NullString `json:"phone,omitempty" db:"phone"`

	// PasswordSet is false for accounts created during payment reconciliation;
	// the buyer completes activation later.
	PasswordHash sql.NullString `json:"-" db:"password_hash"`
	PasswordSet  bool           `json:"password_set" db:"password_set"`

	Role   UserRole   `json:"role" db:"role"`
	Status UserStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
