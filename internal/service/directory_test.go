package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/events"
	"github.com/superplace/rosterd/internal/identity"
	"github.com/superplace/rosterd/internal/repository"
)

func newDirectory(t *testing.T) (*DirectoryService, *repository.MemoryAccountRepository, *events.Broker) {
	t.Helper()
	repo := repository.NewMemoryAccountRepository()
	broker := events.NewBroker(nil)
	return NewDirectoryService(repo, broker, nil), repo, broker
}

func emailCred(t *testing.T, raw string) identity.Credential {
	t.Helper()
	cred, err := identity.EmailCredential(raw)
	require.NoError(t, err)
	return cred
}

func phoneCred(t *testing.T, raw string) identity.Credential {
	t.Helper()
	cred, err := identity.PhoneCredential(raw)
	require.NoError(t, err)
	return cred
}

func TestCreateAccountStudent(t *testing.T) {
	svc, _, broker := newDirectory(t)

	var published []events.AccountCreated
	broker.Observe(func(e events.AccountCreated) {
		published = append(published, e)
	})

	account, err := svc.CreateAccount(SignupParams{
		Name:     "Kim Minji",
		Role:     domain.RoleStudent,
		Password: "secret-pass-1",
		Email:    "Minji@Example.COM",
		TenantID: "tenant-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "minji@example.com", account.Email, "email must be stored normalized")
	assert.Equal(t, "tenant-1", account.TenantID)
	assert.False(t, account.Approved, "students are not approved on signup")
	assert.NotEqual(t, "secret-pass-1", account.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("secret-pass-1")))

	require.Len(t, published, 1)
	assert.Equal(t, account.ID, published[0].AccountID)
	assert.Equal(t, "tenant-1", published[0].TenantID)
}

func TestCreateAccountDirectorApproved(t *testing.T) {
	svc, _, _ := newDirectory(t)

	account, err := svc.CreateAccount(SignupParams{
		Name:     "Director Park",
		Role:     domain.RoleDirector,
		Password: "director-pass",
		Email:    "director@academy.kr",
		TenantID: "tenant-1",
	})
	require.NoError(t, err)
	assert.True(t, account.Approved)
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _, _ := newDirectory(t)

	tests := []struct {
		name   string
		params SignupParams
		kind   domain.Kind
	}{
		{
			name:   "missing name",
			params: SignupParams{Role: domain.RoleStudent, Password: "password1", Email: "a@b.co", TenantID: "t"},
			kind:   domain.KindValidation,
		},
		{
			name:   "short password",
			params: SignupParams{Name: "A", Role: domain.RoleStudent, Password: "short", Email: "a@b.co", TenantID: "t"},
			kind:   domain.KindValidation,
		},
		{
			name:   "no identifier",
			params: SignupParams{Name: "A", Role: domain.RoleStudent, Password: "password1", TenantID: "t"},
			kind:   domain.KindValidation,
		},
		{
			name:   "student without academy",
			params: SignupParams{Name: "A", Role: domain.RoleStudent, Password: "password1", Email: "a@b.co"},
			kind:   domain.KindMissingTenantBinding,
		},
		{
			name:   "malformed email",
			params: SignupParams{Name: "A", Role: domain.RoleStudent, Password: "password1", Email: "not-an-email", TenantID: "t"},
			kind:   domain.KindValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateAccount(tc.params)
			require.Error(t, err)
			assert.Equal(t, tc.kind, domain.KindOf(err))
		})
	}
}

func TestCreateAccountAdminNeedsNoTenant(t *testing.T) {
	svc, _, _ := newDirectory(t)

	account, err := svc.CreateAccount(SignupParams{
		Name:     "Platform Op",
		Role:     domain.RoleAdmin,
		Password: "operator-pass",
		Email:    "op@superplace.io",
	})
	require.NoError(t, err)
	assert.Empty(t, account.TenantID)
	assert.True(t, account.Approved)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	svc, _, _ := newDirectory(t)

	params := SignupParams{
		Name: "First", Role: domain.RoleStudent,
		Password: "password1", Email: "dup@example.com", TenantID: "t1",
	}
	_, err := svc.CreateAccount(params)
	require.NoError(t, err)

	// same email in a different tenant is still a duplicate
	params.Name = "Second"
	params.TenantID = "t2"
	_, err = svc.CreateAccount(params)
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicateIdentifier, domain.KindOf(err))
}

func TestCreateAccountDuplicatePhone(t *testing.T) {
	svc, _, _ := newDirectory(t)

	_, err := svc.CreateAccount(SignupParams{
		Name: "First", Role: domain.RoleStudent,
		Password: "password1", Phone: "010-1234-5678", TenantID: "t1",
	})
	require.NoError(t, err)

	// different formatting, same normalized number
	_, err = svc.CreateAccount(SignupParams{
		Name: "Second", Role: domain.RoleStudent,
		Password: "password1", Phone: "01012345678", TenantID: "t1",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicateIdentifier, domain.KindOf(err))
}

func TestAuthenticateByEmail(t *testing.T) {
	svc, _, _ := newDirectory(t)

	created, err := svc.CreateAccount(SignupParams{
		Name: "Kim", Role: domain.RoleDirector,
		Password: "password1", Email: "kim@academy.kr", TenantID: "t1",
	})
	require.NoError(t, err)
	require.Nil(t, created.LastLoginAt)

	account, err := svc.Authenticate(emailCred(t, "kim@academy.kr"), "password1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.NotNil(t, account.LastLoginAt)
}

func TestAuthenticateByPhone(t *testing.T) {
	svc, _, _ := newDirectory(t)

	_, err := svc.CreateAccount(SignupParams{
		Name: "Lee", Role: domain.RoleStudent,
		Password: "student-pass", Phone: "010-9876-5432", TenantID: "t1",
	})
	require.NoError(t, err)

	account, err := svc.Authenticate(phoneCred(t, "01098765432"), "student-pass")
	require.NoError(t, err)
	assert.Equal(t, "01098765432", account.Phone)
}

func TestAuthenticateFailures(t *testing.T) {
	svc, _, _ := newDirectory(t)

	_, err := svc.CreateAccount(SignupParams{
		Name: "Kim", Role: domain.RoleDirector,
		Password: "password1", Email: "kim@academy.kr", TenantID: "t1",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(emailCred(t, "kim@academy.kr"), "wrong-password")
	assert.Equal(t, domain.KindInvalidCredential, domain.KindOf(err))

	_, err = svc.Authenticate(emailCred(t, "nobody@academy.kr"), "password1")
	assert.Equal(t, domain.KindAccountNotFound, domain.KindOf(err))

	_, err = svc.Authenticate(emailCred(t, "kim@academy.kr"), "")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestAuthenticateLegacyHash(t *testing.T) {
	t.Setenv("FLAG_LEGACY_SHA256_LOGIN", "true")

	svc, repo, _ := newDirectory(t)

	sum := sha256.Sum256([]byte("old-password" + legacySalt))
	require.NoError(t, repo.Create(&domain.Account{
		ID:           "legacy-1",
		Name:         "Legacy User",
		Role:         domain.RoleStudent,
		Email:        "legacy@academy.kr",
		PasswordHash: hex.EncodeToString(sum[:]),
		TenantID:     "t1",
		Approved:     true,
	}))

	account, err := svc.Authenticate(emailCred(t, "legacy@academy.kr"), "old-password")
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", account.ID)

	_, err = svc.Authenticate(emailCred(t, "legacy@academy.kr"), "not-it")
	assert.Equal(t, domain.KindInvalidCredential, domain.KindOf(err))
}

func TestAuthenticateLegacyHashDisabled(t *testing.T) {
	svc, repo, _ := newDirectory(t)

	sum := sha256.Sum256([]byte("old-password" + legacySalt))
	require.NoError(t, repo.Create(&domain.Account{
		ID:           "legacy-2",
		Name:         "Legacy User",
		Role:         domain.RoleStudent,
		Email:        "legacy2@academy.kr",
		PasswordHash: hex.EncodeToString(sum[:]),
		TenantID:     "t1",
		Approved:     true,
	}))

	_, err := svc.Authenticate(emailCred(t, "legacy2@academy.kr"), "old-password")
	assert.Equal(t, domain.KindInvalidCredential, domain.KindOf(err))
}

func TestAuthenticateApprovalGate(t *testing.T) {
	t.Setenv("FLAG_REQUIRE_APPROVAL", "true")

	svc, _, _ := newDirectory(t)

	_, err := svc.CreateAccount(SignupParams{
		Name: "Student", Role: domain.RoleStudent,
		Password: "password1", Email: "student@academy.kr", TenantID: "t1",
	})
	require.NoError(t, err)
	_, err = svc.CreateAccount(SignupParams{
		Name: "Director", Role: domain.RoleDirector,
		Password: "password1", Email: "director@academy.kr", TenantID: "t1",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(emailCred(t, "student@academy.kr"), "password1")
	assert.Equal(t, domain.KindApprovalPending, domain.KindOf(err))

	// directors never wait on approval
	_, err = svc.Authenticate(emailCred(t, "director@academy.kr"), "password1")
	require.NoError(t, err)
}
