package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) GetMessage(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidMessageID
	}
	exec := GetExecutor(ctx, r.db)
	var m domain.Message
	err := exec.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, seq, payload, created_at
		FROM messages
		WHERE id = $1
	`, id).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Seq, &m.Payload, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) AddDeliveryEntry(ctx context.Context, messageID uuid.UUID, userID string, at time.Time) (bool, error) {
	exec := GetExecutor(ctx, r.db)
	res, err := exec.ExecContext(ctx, `
		INSERT INTO message_delivery (message_id, user_id, delivered_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageID, userID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *MessageRepo) AddReadEntry(ctx context.Context, messageID uuid.UUID, userID string, at time.Time) (bool, error) {
	exec := GetExecutor(ctx, r.db)
	res, err := exec.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageID, userID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *MessageRepo) MarkReadUpTo(ctx context.Context, conversationID uuid.UUID, userID string, cutoff, at time.Time) ([]uuid.UUID, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, $2, $4
		FROM messages m
		WHERE m.conversation_id = $1
		  AND m.created_at <= $3
		  AND m.sender_id <> $2
		ON CONFLICT (message_id, user_id) DO NOTHING
		RETURNING message_id
	`, conversationID, userID, cutoff, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var marked []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		marked = append(marked, id)
	}
	return marked, rows.Err()
}

func (r *MessageRepo) ListUndelivered(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.seq, m.payload, m.created_at
		FROM messages m
		JOIN conversation_members cm
		  ON cm.conversation_id = m.conversation_id AND cm.user_id = $1
		WHERE m.sender_id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM message_delivery d
			WHERE d.message_id = m.id AND d.user_id = $1
		  )
		ORDER BY m.created_at ASC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Seq, &m.Payload, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) SaveWithSequence(ctx context.Context, msg *domain.Message) (int64, error) {
	if msg.ConversationID == uuid.Nil {
		return 0, domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	var seq int64
	err := exec.QueryRowContext(ctx, `
		INSERT INTO conversation_sequences (conversation_id, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (conversation_id)
		DO UPDATE SET last_seq = conversation_sequences.last_seq + 1
		RETURNING last_seq
	`, msg.ConversationID).Scan(&seq)
	if err != nil {
		return 0, err
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, seq, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.ConversationID, msg.SenderID, seq, msg.Payload, msg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return seq, nil
}
