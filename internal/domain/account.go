package domain

import (
	"strings"
	"time"
)

// Role is the closed set of account roles
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDirector Role = "DIRECTOR"
	RoleTeacher  Role = "TEACHER"
	RoleStudent  Role = "STUDENT"
)

// ParseRole normalizes a client-supplied role string.
// Legacy clients send SUPER_ADMIN for platform operators; it maps to ADMIN.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN", "SUPER_ADMIN":
		return RoleAdmin, nil
	case "DIRECTOR":
		return RoleDirector, nil
	case "TEACHER", "STAFF":
		return RoleTeacher, nil
	case "STUDENT":
		return RoleStudent, nil
	default:
		return "", NewError(KindValidation, "unknown role: "+s)
	}
}

// Account represents a platform user bound to at most one academy
type Account struct {
	ID           string // UUID
	Name         string
	Role         Role
	Email        string // normalized, empty when the account has no email
	Phone        string // normalized, empty when the account has no phone
	PasswordHash string // bcrypt (or legacy SHA-256 for migrated accounts)
	TenantID     string // empty only for ADMIN accounts
	Approved     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// AccountRepository defines data access for accounts.
// List methods return accounts in creation order.
type AccountRepository interface {
	Create(account *Account) error
	GetByID(id string) (*Account, error)
	GetByEmail(email string) (*Account, error)
	GetByPhone(phone string) (*Account, error)
	Update(account *Account) error
	ListByTenant(tenantID string) ([]*Account, error)
	ListAll() ([]*Account, error)
}

// Caller is the per-request identity derived from the presented session data.
// It is never persisted.
type Caller struct {
	AccountID string
	Email     string
	Role      Role
	TenantID  string
}
