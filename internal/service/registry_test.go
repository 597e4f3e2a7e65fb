package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/repository"
)

func newRegistry(t *testing.T) (*RegistryService, *repository.MemoryTenantRepository) {
	t.Helper()
	repo := repository.NewMemoryTenantRepository()
	return NewRegistryService(repo, nil), repo
}

func TestResolveByNameCreates(t *testing.T) {
	svc, _ := newRegistry(t)

	tenant, err := svc.Resolve(TenantRef{Name: "Seoul Math Academy"})
	require.NoError(t, err)
	assert.NotEmpty(t, tenant.ID)
	assert.Equal(t, "Seoul Math Academy", tenant.Name)
	assert.Len(t, tenant.Code, 8)
}

func TestResolveByNameReuses(t *testing.T) {
	svc, _ := newRegistry(t)

	first, err := svc.Resolve(TenantRef{Name: "Seoul Math Academy"})
	require.NoError(t, err)
	second, err := svc.Resolve(TenantRef{Name: "Seoul Math Academy"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Code, second.Code)

	tenants, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
}

func TestResolveByID(t *testing.T) {
	svc, _ := newRegistry(t)

	created, err := svc.Create("Busan English", "", "")
	require.NoError(t, err)

	tenant, err := svc.Resolve(TenantRef{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created.ID, tenant.ID)

	_, err = svc.Resolve(TenantRef{ID: "no-such-tenant"})
	assert.Equal(t, domain.KindInvalidTenantReference, domain.KindOf(err))
}

func TestResolveByCode(t *testing.T) {
	svc, _ := newRegistry(t)

	created, err := svc.Create("Busan English", "", "")
	require.NoError(t, err)

	tenant, err := svc.Resolve(TenantRef{Code: created.Code})
	require.NoError(t, err)
	assert.Equal(t, created.ID, tenant.ID)

	_, err = svc.Resolve(TenantRef{Code: "WRONGCOD"})
	assert.Equal(t, domain.KindInvalidTenantReference, domain.KindOf(err))
}

func TestResolvePrecedence(t *testing.T) {
	svc, _ := newRegistry(t)

	created, err := svc.Create("Busan English", "", "")
	require.NoError(t, err)

	// an explicit id beats a name that would otherwise create a new tenant
	tenant, err := svc.Resolve(TenantRef{ID: created.ID, Name: "Some Other Name"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, tenant.ID)

	tenants, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
}

func TestResolveEmptyRef(t *testing.T) {
	svc, _ := newRegistry(t)
	_, err := svc.Resolve(TenantRef{})
	assert.Equal(t, domain.KindInvalidTenantReference, domain.KindOf(err))
}

func TestCreateAllowsDuplicateNames(t *testing.T) {
	svc, _ := newRegistry(t)

	first, err := svc.Create("Gangnam Science", "Seoul", "gs@academy.kr")
	require.NoError(t, err)
	second, err := svc.Create("Gangnam Science", "Busan", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Code, second.Code)

	tenants, err := svc.List()
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, first.ID, tenants[0].ID, "listing keeps creation order")
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newRegistry(t)
	_, err := svc.Create("", "", "")
	assert.Equal(t, domain.KindInvalidTenantReference, domain.KindOf(err))
}

func TestJoinCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := newJoinCode()
		require.Len(t, code, 8)
		for _, r := range code {
			if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				t.Fatalf("unexpected character %q in join code %s", r, code)
			}
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45, "codes should rarely collide")
}
