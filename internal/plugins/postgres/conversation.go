package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Members(ctx context.Context, conversationID uuid.UUID) ([]string, error) {
	if conversationID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT user_id FROM conversation_members
		WHERE conversation_id = $1
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, domain.ErrConversationNotFound
	}
	return members, nil
}

func (r *ConversationRepo) IsMember(ctx context.Context, conversationID uuid.UUID, userID string) (bool, error) {
	exec := GetExecutor(ctx, r.db)
	var one int
	err := exec.QueryRowContext(ctx, `
		SELECT 1 FROM conversation_members
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ConversationRepo) ResetUnread(ctx context.Context, conversationID uuid.UUID, userID string) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE conversation_members
		SET unread_count = 0
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID)
	return err
}

func (r *ConversationRepo) IncrementUnread(ctx context.Context, conversationID uuid.UUID, exceptUserID string) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE conversation_members
		SET unread_count = unread_count + 1
		WHERE conversation_id = $1 AND user_id <> $2
	`, conversationID, exceptUserID)
	return err
}
