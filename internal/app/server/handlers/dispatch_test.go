package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

func TestErrCode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrInvalidConversationID, "invalid_argument"},
		{domain.ErrInvalidMessageID, "invalid_argument"},
		{domain.ErrInvalidCallType, "invalid_argument"},
		{domain.ErrInvalidReadCutoff, "invalid_argument"},
		{domain.ErrNotParticipant, "permission_denied"},
		{domain.ErrBlocked, "permission_denied"},
		{domain.ErrCallAlreadyHandled, "state_conflict"},
		{domain.ErrCallCooldown, "rate_limited"},
		{domain.ErrMessageNotFound, "not_found"},
		{domain.ErrCallNotFound, "not_found"},
		{errors.New("disk on fire"), "internal"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, errCode(tc.err), "for %v", tc.err)
	}
}
