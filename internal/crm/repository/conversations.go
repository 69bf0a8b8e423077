package repository

import (
	"context"
	"errors"
	"fmt"

	"scimoveis_backend/internal/crm/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FindOrCreateOpenConversation returns the contact's open conversation,
// creating one when none exists.
func (r *Repository) FindOrCreateOpenConversation(ctx context.Context, tenantID, contactID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, tenant_id, contact_id, channel, status, last_message_at, created_at, updated_at
		FROM conversations
		WHERE tenant_id = $1 AND contact_id = $2 AND status = 'open'
		ORDER BY created_at DESC LIMIT 1`

	var conv domain.Conversation
	err := r.db.QueryRow(ctx, query, tenantID, contactID).Scan(
		&conv.ID, &conv.TenantID, &conv.ContactID, &conv.Channel, &conv.Status,
		&conv.LastMessageAt, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	insert := `
		INSERT INTO conversations (tenant_id, contact_id)
		VALUES ($1, $2)
		RETURNING id, tenant_id, contact_id, channel, status, last_message_at, created_at, updated_at`

	err = r.db.QueryRow(ctx, insert, tenantID, contactID).Scan(
		&conv.ID, &conv.TenantID, &conv.ContactID, &conv.Channel, &conv.Status,
		&conv.LastMessageAt, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, nil
}

// AppendMessage persists one conversation turn and bumps the thread's
// last_message_at.
func (r *Repository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (conversation_id, tenant_id, direction, role, content, media_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		msg.ConversationID, msg.TenantID, msg.Direction, msg.Role, msg.Content, msg.MediaType,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	touch := `UPDATE conversations SET last_message_at = $2, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, touch, msg.ConversationID, msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// ListRecentMessages returns the newest messages of a conversation in
// chronological order, capped at limit.
func (r *Repository) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, tenant_id, direction, role, content, media_type, created_at
		FROM (
			SELECT id, conversation_id, tenant_id, direction, role, content, media_type, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.TenantID, &m.Direction, &m.Role,
			&m.Content, &m.MediaType, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountConversationsByContact returns how many threads a contact has.
func (r *Repository) CountConversationsByContact(ctx context.Context, tenantID, contactID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM conversations WHERE tenant_id = $1 AND contact_id = $2`

	var count int
	if err := r.db.QueryRow(ctx, query, tenantID, contactID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}
