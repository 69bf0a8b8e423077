package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scimoveis_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultSearchLimit = 3

// Repository provides database operations for the listing catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new properties repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const propertyColumns = `id, tenant_id, code, title, city, neighborhood, property_type, purpose,
	bedrooms, bathrooms, area_m2, price, description, created_at`

func scanProperty(row pgx.Row) (*Property, error) {
	var p Property
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Code, &p.Title, &p.City, &p.Neighborhood,
		&p.PropertyType, &p.Purpose, &p.Bedrooms, &p.Bathrooms,
		&p.AreaM2, &p.Price, &p.Description, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByCode retrieves a listing by its display code (e.g. "AP001").
func (r *Repository) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE tenant_id = $1 AND code = $2`

	prop, err := scanProperty(r.pool.QueryRow(ctx, query, tenantID, strings.ToUpper(strings.TrimSpace(code))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("property not found")
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return prop, nil
}

// Search returns listings matching the filter, newest first. Unset filter
// fields match everything.
func (r *Repository) Search(ctx context.Context, tenantID uuid.UUID, filter SearchFilter) ([]Property, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{tenantID}

	if filter.City != "" {
		args = append(args, "%"+filter.City+"%")
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", len(args)))
	}
	if filter.PropertyType != "" {
		args = append(args, filter.PropertyType)
		conditions = append(conditions, fmt.Sprintf("property_type = $%d", len(args)))
	}
	if filter.Purpose != "" {
		args = append(args, filter.Purpose)
		conditions = append(conditions, fmt.Sprintf("purpose = $%d", len(args)))
	}
	if filter.Bedrooms > 0 {
		args = append(args, filter.Bedrooms)
		conditions = append(conditions, fmt.Sprintf("bedrooms >= $%d", len(args)))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		conditions = append(conditions, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	args = append(args, limit)

	query := `SELECT ` + propertyColumns + `
		FROM properties
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC
		LIMIT $` + fmt.Sprint(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	defer rows.Close()

	var results []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Code, &p.Title, &p.City, &p.Neighborhood,
			&p.PropertyType, &p.Purpose, &p.Bedrooms, &p.Bathrooms,
			&p.AreaM2, &p.Price, &p.Description, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
