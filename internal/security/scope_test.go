package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/superplace/rosterd/internal/domain"
)

func TestComputeVisibility(t *testing.T) {
	s := NewScoper(nil)

	admin := s.ComputeVisibility(domain.Caller{AccountID: "a1", Role: domain.RoleAdmin})
	assert.True(t, admin.All())
	assert.True(t, admin.Allows(&domain.Account{TenantID: "t1"}))
	assert.True(t, admin.Allows(&domain.Account{TenantID: ""}))

	director := s.ComputeVisibility(domain.Caller{AccountID: "d1", Role: domain.RoleDirector, TenantID: "t1"})
	assert.False(t, director.All())
	assert.True(t, director.Allows(&domain.Account{TenantID: "t1"}))
	assert.False(t, director.Allows(&domain.Account{TenantID: "t2"}))

	// tenancy, not role, drives the filter for non-administrators
	student := s.ComputeVisibility(domain.Caller{AccountID: "s1", Role: domain.RoleStudent, TenantID: "t1"})
	assert.Equal(t, director, student)
}

func TestUnscopedCallerMatchesNothing(t *testing.T) {
	s := NewScoper(nil)

	v := s.ComputeVisibility(domain.Caller{AccountID: "x", Role: domain.RoleTeacher})
	assert.True(t, v.Empty())
	assert.False(t, v.Allows(&domain.Account{TenantID: "t1"}))
	assert.False(t, v.Allows(&domain.Account{TenantID: ""}))
}

func TestValidateTenantAccess(t *testing.T) {
	s := NewScoper(nil)

	admin := domain.Caller{Role: domain.RoleAdmin}
	assert.NoError(t, s.ValidateTenantAccess(admin, "t9"))

	teacher := domain.Caller{Role: domain.RoleTeacher, TenantID: "t1"}
	assert.NoError(t, s.ValidateTenantAccess(teacher, "t1"))

	err := s.ValidateTenantAccess(teacher, "t2")
	assert.True(t, domain.IsKind(err, domain.KindInvalidTenantReference))

	unscoped := domain.Caller{Role: domain.RoleDirector}
	assert.Error(t, s.ValidateTenantAccess(unscoped, ""))
	assert.Error(t, s.ValidateTenantAccess(unscoped, "t1"))
}
