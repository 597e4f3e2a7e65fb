package repository

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"
	"github.com/superplace/rosterd/internal/domain"
)

// PostgresAccountRepository implements domain.AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAccountRepository creates a new account repository
func NewPostgresAccountRepository(db *sql.DB, logger *slog.Logger) *PostgresAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAccountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, name, role, email, phone, password_hash, tenant_id, approved, created_at, updated_at, last_login_at`

// Create creates a new account
func (r *PostgresAccountRepository) Create(account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, role, email, phone, password_hash, tenant_id, approved)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		account.ID,
		account.Name,
		string(account.Role),
		account.Email,
		account.Phone,
		account.PasswordHash,
		account.TenantID,
		account.Approved,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindDuplicateIdentifier, "email or phone already registered")
		}
		r.logger.Error("failed to create account",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return domain.StorageError(err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(id string) (*domain.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByEmail retrieves an account by normalized email
func (r *PostgresAccountRepository) GetByEmail(email string) (*domain.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// GetByPhone retrieves an account by normalized phone number
func (r *PostgresAccountRepository) GetByPhone(phone string) (*domain.Account, error) {
	return r.getOne(`SELECT `+accountColumns+` FROM accounts WHERE phone = $1`, phone)
}

// Update updates a mutable subset of an account. The tenant binding is
// immutable after signup and is deliberately absent from the statement.
func (r *PostgresAccountRepository) Update(account *domain.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, password_hash = $2, approved = $3, last_login_at = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		account.Name,
		account.PasswordHash,
		account.Approved,
		account.LastLoginAt,
		account.ID,
	).Scan(&account.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewError(domain.KindAccountNotFound, "account not found")
		}
		return domain.StorageError(err)
	}

	return nil
}

// ListByTenant lists all accounts for a tenant in creation order
func (r *PostgresAccountRepository) ListByTenant(tenantID string) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE tenant_id = $1
		ORDER BY created_at, id
	`
	return r.list(query, tenantID)
}

// ListAll lists every account across all tenants in creation order
func (r *PostgresAccountRepository) ListAll() ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY created_at, id
	`
	return r.list(query)
}

func (r *PostgresAccountRepository) getOne(query string, arg string) (*domain.Account, error) {
	row := r.db.QueryRow(query, arg)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindAccountNotFound, "account not found")
		}
		return nil, domain.StorageError(err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) list(query string, args ...interface{}) ([]*domain.Account, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("failed to list accounts", slog.String("error", err.Error()))
		return nil, domain.StorageError(err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("failed to scan account row", slog.String("error", err.Error()))
			return nil, domain.StorageError(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(err)
	}

	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	var email, phone, tenantID sql.NullString

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Role,
		&email,
		&phone,
		&account.PasswordHash,
		&tenantID,
		&account.Approved,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	account.Email = email.String
	account.Phone = phone.String
	account.TenantID = tenantID.String
	return account, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
