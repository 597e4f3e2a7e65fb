package security

import (
	"log/slog"

	"github.com/superplace/rosterd/internal/domain"
)

// Visibility is the access predicate applied to the account set for a caller.
// Exactly one of three shapes: match-all (administrators), match-one-tenant,
// or match-none (non-administrator with no tenant binding).
type Visibility struct {
	all      bool
	tenantID string
}

// VisibilityAll matches every account
func VisibilityAll() Visibility { return Visibility{all: true} }

// VisibilityTenant matches accounts bound to one tenant
func VisibilityTenant(tenantID string) Visibility { return Visibility{tenantID: tenantID} }

// VisibilityNone matches no account
func VisibilityNone() Visibility { return Visibility{} }

// All reports whether the predicate matches every account
func (v Visibility) All() bool { return v.all }

// TenantID returns the tenant the predicate is scoped to, if any
func (v Visibility) TenantID() string { return v.tenantID }

// Empty reports whether the predicate can never match
func (v Visibility) Empty() bool { return !v.all && v.tenantID == "" }

// Allows applies the predicate to a single account
func (v Visibility) Allows(account *domain.Account) bool {
	if v.all {
		return true
	}
	if v.tenantID == "" {
		return false
	}
	return account.TenantID == v.tenantID
}

// Scoper computes visibility predicates for authenticated callers
type Scoper struct {
	logger *slog.Logger
}

// NewScoper creates a new access scoper
func NewScoper(logger *slog.Logger) *Scoper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scoper{logger: logger}
}

// ComputeVisibility derives the account-set predicate for a caller.
// Administrators see across tenants. Every other role is scoped to its own
// tenant; role does not widen the filter. A non-administrator without a
// tenant binding matches nothing: the predicate fails closed rather than
// exposing cross-tenant data.
func (s *Scoper) ComputeVisibility(caller domain.Caller) Visibility {
	if caller.Role == domain.RoleAdmin {
		return VisibilityAll()
	}
	if caller.TenantID == "" {
		s.logger.Warn("caller without tenant binding, scoping to nothing",
			slog.String("account_id", caller.AccountID),
			slog.String("role", string(caller.Role)),
		)
		return VisibilityNone()
	}
	return VisibilityTenant(caller.TenantID)
}

// ValidateTenantAccess checks whether a caller may read a specific tenant's
// data, e.g. when subscribing to a tenant's roster stream.
func (s *Scoper) ValidateTenantAccess(caller domain.Caller, tenantID string) error {
	v := s.ComputeVisibility(caller)
	if v.All() {
		return nil
	}
	if tenantID == "" || v.TenantID() != tenantID {
		s.logger.Warn("tenant access denied",
			slog.String("caller_tenant", caller.TenantID),
			slog.String("requested_tenant", tenantID),
		)
		return domain.NewError(domain.KindInvalidTenantReference, "access denied: invalid tenant")
	}
	return nil
}
