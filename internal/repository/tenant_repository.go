package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/superplace/rosterd/internal/domain"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

const tenantColumns = `id, name, code, address, email, created_at, updated_at`

// Create creates a new tenant under a fresh identifier.
// Display names are not unique here; callers who want name reuse go through
// FindOrCreateByName instead.
func (r *PostgresTenantRepository) Create(tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, code, address, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(query, tenant.ID, tenant.Name, tenant.Code, tenant.Address, tenant.Email).Scan(
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create tenant",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
		return domain.StorageError(err)
	}
	return nil
}

// FindOrCreateByName resolves a tenant by display name, inserting one when no
// match exists. An advisory transaction lock on the name serializes
// concurrent calls so that two signups racing on the same literal name can
// never create two tenants.
func (r *PostgresTenantRepository) FindOrCreateByName(tenant *domain.Tenant) error {
	tx, err := r.db.Begin()
	if err != nil {
		return domain.StorageError(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, tenant.Name); err != nil {
		return domain.StorageError(err)
	}

	row := tx.QueryRow(`
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE name = $1
		ORDER BY created_at, id
		LIMIT 1
	`, tenant.Name)

	existing := &domain.Tenant{}
	err = scanTenantFrom(row, existing)
	switch {
	case err == nil:
		*tenant = *existing
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRow(`
			INSERT INTO tenants (id, name, code, address, email)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at
		`, tenant.ID, tenant.Name, tenant.Code, tenant.Address, tenant.Email).Scan(
			&tenant.CreatedAt,
			&tenant.UpdatedAt,
		)
		if err != nil {
			return domain.StorageError(err)
		}
	default:
		return domain.StorageError(err)
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError(err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *PostgresTenantRepository) GetByID(id string) (*domain.Tenant, error) {
	return r.getOne(`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetByCode retrieves a tenant by its join code
func (r *PostgresTenantRepository) GetByCode(code string) (*domain.Tenant, error) {
	return r.getOne(`SELECT `+tenantColumns+` FROM tenants WHERE code = $1`, code)
}

// List returns all tenants in creation order
func (r *PostgresTenantRepository) List() ([]*domain.Tenant, error) {
	rows, err := r.db.Query(`SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, domain.StorageError(err)
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		t := &domain.Tenant{}
		if err := scanTenantFrom(rows, t); err != nil {
			return nil, domain.StorageError(fmt.Errorf("failed to scan tenant: %w", err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(err)
	}
	return out, nil
}

func (r *PostgresTenantRepository) getOne(query string, arg string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := scanTenantFrom(r.db.QueryRow(query, arg), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindInvalidTenantReference, "tenant not found")
		}
		return nil, domain.StorageError(err)
	}
	return t, nil
}

func scanTenantFrom(row rowScanner, t *domain.Tenant) error {
	var address, email sql.NullString
	err := row.Scan(&t.ID, &t.Name, &t.Code, &address, &email, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}
	t.Address = address.String
	t.Email = email.String
	return nil
}
