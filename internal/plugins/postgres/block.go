package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
)

// BlockRepo reads the block tables the social-graph service maintains.
// The coordinator only ever asks yes/no.
type BlockRepo struct {
	db *sql.DB
}

func NewBlockRepo(db *sql.DB) *BlockRepo {
	return &BlockRepo{db: db}
}

var _ contracts.BlockChecker = (*BlockRepo)(nil)

func (r *BlockRepo) IsBlocked(ctx context.Context, userID, otherID string) (bool, error) {
	exec := GetExecutor(ctx, r.db)
	var one int
	err := exec.QueryRowContext(ctx, `
		SELECT 1 FROM user_blocks
		WHERE (blocker_id = $1 AND blocked_id = $2)
		   OR (blocker_id = $2 AND blocked_id = $1)
		LIMIT 1
	`, userID, otherID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *BlockRepo) IsConversationBlocked(ctx context.Context, userID string, conversationID uuid.UUID) (bool, error) {
	exec := GetExecutor(ctx, r.db)
	var one int
	err := exec.QueryRowContext(ctx, `
		SELECT 1 FROM conversation_blocks
		WHERE user_id = $1 AND conversation_id = $2
	`, userID, conversationID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
