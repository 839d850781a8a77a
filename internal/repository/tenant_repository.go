package repository

import (
	"database/sql"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
)

// TenantRepositoryInterface is the read-only channel configuration lookup.
type TenantRepositoryInterface interface {
	GetByID(id string) (*model.Tenant, error)
}

type TenantRepository struct {
	DB *sql.DB
}

// GetByID fetches a tenant by ID, nil when not found.
func (r *TenantRepository) GetByID(id string) (*model.Tenant, error) {
	query := `
        SELECT id, name, instance_id, api_token, connected
        FROM tenants
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var t model.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.InstanceID, &t.APIToken, &t.Connected); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &t, nil
}

var _ TenantRepositoryInterface = (*TenantRepository)(nil)
