package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

type UserStatusRepo struct {
	db *sql.DB
}

func NewUserStatusRepo(db *sql.DB) *UserStatusRepo {
	return &UserStatusRepo{db: db}
}

var _ domain.UserStatusRepository = (*UserStatusRepo)(nil)

func (r *UserStatusRepo) SetOnline(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO user_status (user_id, is_online, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET is_online = EXCLUDED.is_online, last_seen_at = EXCLUDED.last_seen_at
	`, userID, online, lastSeen)
	return err
}

func (r *UserStatusRepo) GetStatus(ctx context.Context, userID string) (*domain.UserStatus, error) {
	exec := GetExecutor(ctx, r.db)
	var s domain.UserStatus
	err := exec.QueryRowContext(ctx, `
		SELECT user_id, is_online, last_seen_at
		FROM user_status
		WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.IsOnline, &s.LastSeenAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &s, nil
}
