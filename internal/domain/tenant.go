package domain

import "time"

// Tenant represents an academy. Display names are not unique; the explicit
// Create path always allocates a fresh tenant even when the name is taken.
type Tenant struct {
	ID        string // UUID
	Name      string
	Code      string // join code handed to teachers and students
	Address   string
	Email     string // contact email of the creating director
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantRepository defines data access for tenants
type TenantRepository interface {
	// Create persists a new tenant under a fresh identifier.
	Create(tenant *Tenant) error
	// FindOrCreateByName resolves a tenant by display name, creating it when
	// absent. The lookup and the insert are one atomic operation: two
	// concurrent calls with the same name must resolve to one tenant.
	FindOrCreateByName(tenant *Tenant) error
	GetByID(id string) (*Tenant, error)
	GetByCode(code string) (*Tenant, error)
	List() ([]*Tenant, error)
}
