package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const contactNotFoundMsg = "contact not found"

const contactColumns = `id, tenant_id, phone, name, score, last_interaction_at, created_at, updated_at`

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Phone, &c.Name, &c.Score,
		&c.LastInteractionAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContactByPhone retrieves a contact by tenant and E.164 phone.
func (r *Repository) GetContactByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE tenant_id = $1 AND phone = $2`

	contact, err := scanContact(r.db.QueryRow(ctx, query, tenantID, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(contactNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get contact by phone: %w", err)
	}
	return contact, nil
}

// GetContactByID retrieves a contact by ID within a tenant.
func (r *Repository) GetContactByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE tenant_id = $1 AND id = $2`

	contact, err := scanContact(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(contactNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// FindOrCreateContact looks up a contact by phone, creating one with the
// initial score when none exists. The second return value reports whether a
// new contact was created.
func (r *Repository) FindOrCreateContact(ctx context.Context, tenantID uuid.UUID, phone, name string) (*domain.Contact, bool, error) {
	contact, err := r.GetContactByPhone(ctx, tenantID, phone)
	if err == nil {
		return contact, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, false, err
	}

	query := `
		INSERT INTO contacts (tenant_id, phone, name, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, phone) DO UPDATE SET updated_at = now()
		RETURNING ` + contactColumns

	contact, err = scanContact(r.db.QueryRow(ctx, query, tenantID, phone, name, domain.ScoreInitial))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, true, nil
}

// AdjustContactScore applies a score delta, clamped to [0, 100], and returns
// the new score.
func (r *Repository) AdjustContactScore(ctx context.Context, tenantID, contactID uuid.UUID, delta int) (int, error) {
	query := `
		UPDATE contacts
		SET score = LEAST($3, GREATEST($4, score + $5)), updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING score`

	var newScore int
	err := r.db.QueryRow(ctx, query, tenantID, contactID, domain.ScoreMax, domain.ScoreMin, delta).Scan(&newScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound(contactNotFoundMsg)
		}
		return 0, fmt.Errorf("failed to adjust contact score: %w", err)
	}
	return newScore, nil
}

// TouchContactInteraction records the moment a contact last wrote in.
func (r *Repository) TouchContactInteraction(ctx context.Context, tenantID, contactID uuid.UUID, at time.Time) error {
	query := `UPDATE contacts SET last_interaction_at = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.Exec(ctx, query, tenantID, contactID, at)
	if err != nil {
		return fmt.Errorf("failed to touch contact interaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(contactNotFoundMsg)
	}
	return nil
}

// UpdateContactName sets the display name when the gateway provides one.
func (r *Repository) UpdateContactName(ctx context.Context, tenantID, contactID uuid.UUID, name string) error {
	query := `UPDATE contacts SET name = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2 AND name = ''`

	if _, err := r.db.Exec(ctx, query, tenantID, contactID, name); err != nil {
		return fmt.Errorf("failed to update contact name: %w", err)
	}
	return nil
}
