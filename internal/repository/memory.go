package repository

import (
	"sync"
	"time"

	"github.com/superplace/rosterd/internal/domain"
)

// MemoryAccountRepository is an insertion-ordered in-memory implementation of
// domain.AccountRepository. Used by tests and by dev mode when no database is
// configured.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts []*domain.Account
	byID     map[string]*domain.Account
	byEmail  map[string]*domain.Account
	byPhone  map[string]*domain.Account
}

// NewMemoryAccountRepository creates an empty in-memory account repository
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:    map[string]*domain.Account{},
		byEmail: map[string]*domain.Account{},
		byPhone: map[string]*domain.Account{},
	}
}

func (r *MemoryAccountRepository) Create(account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.Email != "" {
		if _, exists := r.byEmail[account.Email]; exists {
			return domain.NewError(domain.KindDuplicateIdentifier, "email already registered")
		}
	}
	if account.Phone != "" {
		if _, exists := r.byPhone[account.Phone]; exists {
			return domain.NewError(domain.KindDuplicateIdentifier, "phone already registered")
		}
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	r.accounts = append(r.accounts, &stored)
	r.byID[stored.ID] = &stored
	if stored.Email != "" {
		r.byEmail[stored.Email] = &stored
	}
	if stored.Phone != "" {
		r.byPhone[stored.Phone] = &stored
	}
	return nil
}

func (r *MemoryAccountRepository) GetByID(id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyAccount(r.byID[id])
}

func (r *MemoryAccountRepository) GetByEmail(email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyAccount(r.byEmail[email])
}

func (r *MemoryAccountRepository) GetByPhone(phone string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyAccount(r.byPhone[phone])
}

func (r *MemoryAccountRepository) Update(account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.byID[account.ID]
	if !exists {
		return domain.NewError(domain.KindAccountNotFound, "account not found")
	}
	stored.Name = account.Name
	stored.PasswordHash = account.PasswordHash
	stored.Approved = account.Approved
	stored.LastLoginAt = account.LastLoginAt
	stored.UpdatedAt = time.Now()
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryAccountRepository) ListByTenant(tenantID string) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Account
	for _, a := range r.accounts {
		if a.TenantID == tenantID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryAccountRepository) ListAll() ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func copyAccount(a *domain.Account) (*domain.Account, error) {
	if a == nil {
		return nil, domain.NewError(domain.KindAccountNotFound, "account not found")
	}
	c := *a
	return &c, nil
}

// MemoryTenantRepository is an insertion-ordered in-memory implementation of
// domain.TenantRepository
type MemoryTenantRepository struct {
	mu      sync.Mutex
	tenants []*domain.Tenant
	byID    map[string]*domain.Tenant
	byCode  map[string]*domain.Tenant
}

// NewMemoryTenantRepository creates an empty in-memory tenant repository
func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{
		byID:   map[string]*domain.Tenant{},
		byCode: map[string]*domain.Tenant{},
	}
}

func (r *MemoryTenantRepository) Create(tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(tenant)
	return nil
}

func (r *MemoryTenantRepository) FindOrCreateByName(tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// first tenant with the name wins, matching the Postgres ordering
	for _, t := range r.tenants {
		if t.Name == tenant.Name {
			*tenant = *t
			return nil
		}
	}
	r.insert(tenant)
	return nil
}

func (r *MemoryTenantRepository) insert(tenant *domain.Tenant) {
	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	stored := *tenant
	r.tenants = append(r.tenants, &stored)
	r.byID[stored.ID] = &stored
	if stored.Code != "" {
		r.byCode[stored.Code] = &stored
	}
}

func (r *MemoryTenantRepository) GetByID(id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyTenant(r.byID[id])
}

func (r *MemoryTenantRepository) GetByCode(code string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyTenant(r.byCode[code])
}

func (r *MemoryTenantRepository) List() ([]*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

func copyTenant(t *domain.Tenant) (*domain.Tenant, error) {
	if t == nil {
		return nil, domain.NewError(domain.KindInvalidTenantReference, "tenant not found")
	}
	c := *t
	return &c, nil
}
