package service

import (
	"crypto/rand"
	"log/slog"

	"github.com/google/uuid"
	"github.com/superplace/rosterd/internal/domain"
)

// TenantRef names a tenant one of three ways. When several are set an
// explicit identifier wins over a join code, which wins over a display name.
type TenantRef struct {
	ID   string
	Code string
	Name string
	// Address is stored only when name resolution creates the tenant
	Address string
}

// Empty reports whether the reference names nothing
func (r TenantRef) Empty() bool {
	return r.ID == "" && r.Code == "" && r.Name == ""
}

// RegistryService owns tenant resolution and creation
type RegistryService struct {
	tenantRepo domain.TenantRepository
	logger     *slog.Logger
}

// NewRegistryService creates a new tenant registry
func NewRegistryService(tenantRepo domain.TenantRepository, logger *slog.Logger) *RegistryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryService{tenantRepo: tenantRepo, logger: logger}
}

// Resolve returns the tenant a signup refers to. An explicit id or join code
// must match an existing tenant; a bare name resolves to the existing tenant
// with that name or atomically creates one.
func (s *RegistryService) Resolve(ref TenantRef) (*domain.Tenant, error) {
	switch {
	case ref.ID != "":
		return s.tenantRepo.GetByID(ref.ID)
	case ref.Code != "":
		return s.tenantRepo.GetByCode(ref.Code)
	case ref.Name != "":
		tenant := &domain.Tenant{
			ID:      uuid.NewString(),
			Name:    ref.Name,
			Code:    newJoinCode(),
			Address: ref.Address,
		}
		if err := s.tenantRepo.FindOrCreateByName(tenant); err != nil {
			return nil, err
		}
		s.logger.Info("tenant resolved by name",
			slog.String("tenant_id", tenant.ID),
			slog.String("name", tenant.Name),
		)
		return tenant, nil
	default:
		return nil, domain.NewError(domain.KindInvalidTenantReference, "academy name, code, or id required")
	}
}

// Create allocates a new tenant unconditionally. Unlike name resolution it
// never reuses an existing tenant, even when the display name is taken.
func (s *RegistryService) Create(name, address, email string) (*domain.Tenant, error) {
	if name == "" {
		return nil, domain.NewError(domain.KindInvalidTenantReference, "academy name required")
	}

	tenant := &domain.Tenant{
		ID:      uuid.NewString(),
		Name:    name,
		Code:    newJoinCode(),
		Address: address,
		Email:   email,
	}
	if err := s.tenantRepo.Create(tenant); err != nil {
		return nil, err
	}

	s.logger.Info("tenant created",
		slog.String("tenant_id", tenant.ID),
		slog.String("name", tenant.Name),
		slog.String("code", tenant.Code),
	)
	return tenant, nil
}

// Get returns a tenant by id
func (s *RegistryService) Get(id string) (*domain.Tenant, error) {
	return s.tenantRepo.GetByID(id)
}

// List returns all tenants in creation order
func (s *RegistryService) List() ([]*domain.Tenant, error) {
	return s.tenantRepo.List()
}

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newJoinCode allocates an 8-character academy join code
func newJoinCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// fall back to uuid-derived bytes; codes only need uniqueness in practice
		copy(buf, uuid.NewString())
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf)
}
