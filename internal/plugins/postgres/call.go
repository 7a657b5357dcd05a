package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

type CallRepo struct {
	db *sql.DB
}

func NewCallRepo(db *sql.DB) *CallRepo {
	return &CallRepo{db: db}
}

var _ domain.CallRepository = (*CallRepo)(nil)

func (r *CallRepo) Create(ctx context.Context, call *domain.Call) error {
	callees, err := json.Marshal(call.CalleeIDs)
	if err != nil {
		return err
	}
	exec := GetExecutor(ctx, r.db)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO calls (id, conversation_id, caller_id, callee_ids, call_type, status, metadata, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, call.ID, call.ConversationID, call.CallerID, callees,
		string(call.Type), string(call.Status), []byte(call.Metadata), call.StartedAt)
	return err
}

func (r *CallRepo) UpdateStatus(ctx context.Context, call *domain.Call) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE calls
		SET status = $2, accepted_at = $3, ended_at = $4, duration_ms = $5
		WHERE id = $1
	`, call.ID, string(call.Status), call.AcceptedAt, call.EndedAt, call.Duration.Milliseconds())
	return err
}

func (r *CallRepo) GetCall(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidCallID
	}
	exec := GetExecutor(ctx, r.db)
	var (
		c          domain.Call
		callees    []byte
		callType   string
		status     string
		metadata   []byte
		durationMS int64
	)
	err := exec.QueryRowContext(ctx, `
		SELECT id, conversation_id, caller_id, callee_ids, call_type, status, metadata, started_at, accepted_at, ended_at, duration_ms
		FROM calls
		WHERE id = $1
	`, id).Scan(&c.ID, &c.ConversationID, &c.CallerID, &callees, &callType, &status, &metadata, &c.StartedAt, &c.AcceptedAt, &c.EndedAt, &durationMS)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCallNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(callees, &c.CalleeIDs); err != nil {
		return nil, err
	}
	c.Type = domain.CallType(callType)
	c.Status = domain.CallStatus(status)
	c.Metadata = metadata
	c.Duration = time.Duration(durationMS) * time.Millisecond
	return &c, nil
}
