package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/superplace/rosterd/internal/domain"
	"github.com/superplace/rosterd/internal/events"
	"github.com/superplace/rosterd/internal/featureflags"
	"github.com/superplace/rosterd/internal/identity"
	"github.com/superplace/rosterd/internal/observability/metrics"
	"golang.org/x/crypto/bcrypt"
)

// legacySalt is the fixed salt of the first-generation SHA-256 password
// scheme. Verification only; new hashes are always bcrypt.
const legacySalt = "superplace-salt-2024"

const minPasswordLen = 8

// SignupParams carries a validated, tenant-resolved account creation request
type SignupParams struct {
	Name     string
	Role     domain.Role
	Password string
	Email    string // raw, normalized here
	Phone    string // raw, normalized here
	TenantID string // resolved upstream by the tenant registry
}

// DirectoryService owns account records: creation, credential resolution,
// and reads. Tenant resolution is the registry's job and must be complete
// before CreateAccount is called.
type DirectoryService struct {
	accountRepo domain.AccountRepository
	broker      *events.Broker
	logger      *slog.Logger
}

// NewDirectoryService creates a new account directory
func NewDirectoryService(accountRepo domain.AccountRepository, broker *events.Broker, logger *slog.Logger) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{
		accountRepo: accountRepo,
		broker:      broker,
		logger:      logger,
	}
}

// CreateAccount validates and persists a new account. The tenant binding is
// mandatory for every role except administrator and immutable afterwards.
func (s *DirectoryService) CreateAccount(p SignupParams) (*domain.Account, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, domain.NewError(domain.KindValidation, "name is required")
	}
	if len(p.Password) < minPasswordLen {
		return nil, domain.NewError(domain.KindValidation, "password must be at least 8 characters")
	}
	if p.Email == "" && p.Phone == "" {
		return nil, domain.NewError(domain.KindValidation, "email or phone is required")
	}
	if p.Role != domain.RoleAdmin && p.TenantID == "" {
		return nil, domain.NewError(domain.KindMissingTenantBinding, "account requires an academy binding")
	}

	var email, phone string
	if p.Email != "" {
		normalized, err := identity.NormalizeEmail(p.Email)
		if err != nil {
			return nil, err
		}
		email = normalized
	}
	if p.Phone != "" {
		normalized, err := identity.NormalizePhone(p.Phone)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	if email != "" {
		if existing, err := s.accountRepo.GetByEmail(email); err == nil && existing != nil {
			return nil, domain.NewError(domain.KindDuplicateIdentifier, "email already registered")
		}
	}
	if phone != "" {
		if existing, err := s.accountRepo.GetByPhone(phone); err == nil && existing != nil {
			return nil, domain.NewError(domain.KindDuplicateIdentifier, "phone already registered")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, domain.WrapError(domain.KindValidation, "failed to process password", err)
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(p.Name),
		Role:         p.Role,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		TenantID:     p.TenantID,
		// Directors and administrators are approved on signup; everyone else
		// waits for their director when the approval flow is enabled.
		Approved: p.Role == domain.RoleDirector || p.Role == domain.RoleAdmin,
	}

	if err := s.accountRepo.Create(account); err != nil {
		s.logger.Error("failed to create account",
			slog.String("role", string(account.Role)),
			slog.String("error", err.Error()),
		)
		metrics.ObserveSignup(string(account.Role), "error")
		return nil, err
	}
	metrics.ObserveSignup(string(account.Role), "ok")

	s.logger.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
		slog.String("tenant_id", account.TenantID),
	)

	if s.broker != nil {
		s.broker.Publish(events.NewAccountCreated(account))
	}
	return account, nil
}

// Authenticate resolves a credential to an account and verifies the
// password. AccountNotFound and InvalidCredential stay distinct here for
// diagnostics; the transport layer collapses them into one response.
func (s *DirectoryService) Authenticate(cred identity.Credential, password string) (*domain.Account, error) {
	if password == "" {
		return nil, domain.NewError(domain.KindValidation, "password is required")
	}

	var (
		account *domain.Account
		err     error
	)
	switch cred.Kind {
	case identity.KindEmail:
		account, err = s.accountRepo.GetByEmail(cred.Value)
	case identity.KindPhone:
		account, err = s.accountRepo.GetByPhone(cred.Value)
	default:
		return nil, domain.NewError(domain.KindValidation, "unknown identifier kind")
	}
	if err != nil {
		s.logger.Info("login attempt for unknown identifier",
			slog.String("kind", string(cred.Kind)),
		)
		metrics.ObserveLogin(string(cred.Kind), "unknown_identifier")
		return nil, err
	}

	if !s.verifyPassword(account, password) {
		s.logger.Info("login failed with wrong password",
			slog.String("account_id", account.ID),
		)
		metrics.ObserveLogin(string(cred.Kind), "bad_password")
		return nil, domain.NewError(domain.KindInvalidCredential, "password mismatch")
	}

	if featureflags.Enabled(featureflags.RequireApproval) &&
		!account.Approved &&
		account.Role != domain.RoleDirector && account.Role != domain.RoleAdmin {
		metrics.ObserveLogin(string(cred.Kind), "pending_approval")
		return nil, domain.NewError(domain.KindApprovalPending, "account pending director approval")
	}

	now := time.Now()
	account.LastLoginAt = &now
	if err := s.accountRepo.Update(account); err != nil {
		// login still succeeds; the timestamp is best-effort
		s.logger.Warn("failed to record last login",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	metrics.ObserveLogin(string(cred.Kind), "ok")
	return account, nil
}

func (s *DirectoryService) verifyPassword(account *domain.Account, password string) bool {
	if isBcryptHash(account.PasswordHash) {
		return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil
	}

	if featureflags.Enabled(featureflags.LegacySHA256Login) {
		sum := sha256.Sum256([]byte(password + legacySalt))
		legacy := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(legacy), []byte(account.PasswordHash)) == 1 {
			s.logger.Info("account authenticated via legacy hash, needs migration",
				slog.String("account_id", account.ID),
			)
			metrics.ObserveLegacyLogin()
			return true
		}
	}
	return false
}

func isBcryptHash(hash string) bool {
	return len(hash) == 60 &&
		(strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$"))
}

// GetByID returns a single account
func (s *DirectoryService) GetByID(id string) (*domain.Account, error) {
	return s.accountRepo.GetByID(id)
}

// ListByTenant returns a tenant's accounts in creation order
func (s *DirectoryService) ListByTenant(tenantID string) ([]*domain.Account, error) {
	return s.accountRepo.ListByTenant(tenantID)
}

// ListAll returns every account in creation order
func (s *DirectoryService) ListAll() ([]*domain.Account, error) {
	return s.accountRepo.ListAll()
}
