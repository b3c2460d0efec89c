package repository

import (
	"context"
	"testing"
	"time"

	"nexus/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewInvitationRepository(db)
	ctx := context.Background()
	now := time.Now()

	network := seedNetwork(t, db, "Bakers", "@bakersgg44hh")
	inviter := seedUser(t, db, "Dot", "dot@example.com")
	invitee := seedUser(t, db, "Eli", "eli@example.com")

	token := uuid.NewString()

	t.Run("CreateBatch and GetByToken", func(t *testing.T) {
		require.NoError(t, repo.CreateBatch(ctx, []models.NetworkInvitation{{
			NetworkID:       network.ID,
			InvitedUserID:   invitee.ID,
			InvitedByUserID: inviter.ID,
			Role:            models.NetworkRoleVIP,
			InviteToken:     token,
			ExpiresAt:       now.Add(48 * time.Hour),
		}}))

		got, err := repo.GetByToken(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.NetworkRoleVIP, got.Role)
		assert.True(t, got.Redeemable(now))

		missing, err := repo.GetByToken(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("GetActiveForUser skips used and expired", func(t *testing.T) {
		got, err := repo.GetActiveForUser(ctx, network.ID, invitee.ID, now)
		require.NoError(t, err)
		require.NotNil(t, got)

		require.NoError(t, repo.MarkUsed(ctx, got.ID))

		none, err := repo.GetActiveForUser(ctx, network.ID, invitee.ID, now)
		require.NoError(t, err)
		assert.Nil(t, none)

		require.NoError(t, repo.CreateBatch(ctx, []models.NetworkInvitation{{
			NetworkID:       network.ID,
			InvitedUserID:   invitee.ID,
			InvitedByUserID: inviter.ID,
			Role:            models.NetworkRoleMember,
			InviteToken:     uuid.NewString(),
			ExpiresAt:       now.Add(-time.Minute),
		}}))

		none, err = repo.GetActiveForUser(ctx, network.ID, invitee.ID, now)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("ListPendingForUser", func(t *testing.T) {
		require.NoError(t, repo.CreateBatch(ctx, []models.NetworkInvitation{{
			NetworkID:       network.ID,
			InvitedUserID:   invitee.ID,
			InvitedByUserID: inviter.ID,
			Role:            models.NetworkRoleMember,
			InviteToken:     uuid.NewString(),
			ExpiresAt:       now.Add(time.Hour),
		}}))

		pending, err := repo.ListPendingForUser(ctx, invitee.ID, now)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.NotNil(t, pending[0].Network)
		assert.Equal(t, "Bakers", pending[0].Network.Name)
	})

	t.Run("DeleteAllForNetwork", func(t *testing.T) {
		require.NoError(t, repo.DeleteAllForNetwork(ctx, network.ID))
		pending, err := repo.ListPendingForUser(ctx, invitee.ID, now)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
