package repository

import (
	"context"
	"testing"

	"nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGoalRepository(db)
	ctx := context.Background()

	network := seedNetwork(t, db, "Writers", "@writersii55jj")
	creator := seedUser(t, db, "Fay", "fay@example.com")
	member := seedUser(t, db, "Gus", "gus@example.com")

	goal := &models.NetworkGoal{
		NetworkID:       network.ID,
		Title:           "Write daily",
		CreatedByUserID: creator.ID,
	}

	t.Run("CreateGoal and ListByNetwork", func(t *testing.T) {
		require.NoError(t, repo.CreateGoal(ctx, goal))
		require.NoError(t, repo.CreateGoal(ctx, &models.NetworkGoal{
			NetworkID:       network.ID,
			Title:           "Read weekly",
			CreatedByUserID: creator.ID,
		}))

		goals, err := repo.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)
		assert.Len(t, goals, 2)
	})

	t.Run("ReplaceMemberGoals swaps selections", func(t *testing.T) {
		goals, err := repo.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)

		require.NoError(t, repo.ReplaceMemberGoals(ctx, network.ID, member.ID, []uint{goals[0].ID}))
		require.NoError(t, repo.ReplaceMemberGoals(ctx, network.ID, member.ID, []uint{goals[1].ID}))

		selected, err := repo.ListMemberGoals(ctx, network.ID, member.ID)
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, goals[1].ID, selected[0].GoalID)
		require.NotNil(t, selected[0].Goal)
		assert.Equal(t, "Read weekly", selected[0].Goal.Title)
	})

	t.Run("DeleteGoal removes selections too", func(t *testing.T) {
		goals, err := repo.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)

		require.NoError(t, repo.ReplaceMemberGoals(ctx, network.ID, member.ID, []uint{goals[1].ID}))
		require.NoError(t, repo.DeleteGoal(ctx, goals[1].ID))

		selected, err := repo.ListMemberGoals(ctx, network.ID, member.ID)
		require.NoError(t, err)
		assert.Empty(t, selected)

		assert.Error(t, repo.DeleteGoal(ctx, goals[1].ID))
	})

	t.Run("DeleteMemberGoalsForUser", func(t *testing.T) {
		goals, err := repo.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)
		require.NoError(t, repo.ReplaceMemberGoals(ctx, network.ID, member.ID, []uint{goals[0].ID}))

		require.NoError(t, repo.DeleteMemberGoalsForUser(ctx, network.ID, member.ID))
		selected, err := repo.ListMemberGoals(ctx, network.ID, member.ID)
		require.NoError(t, err)
		assert.Empty(t, selected)
	})

	t.Run("DeleteAllForNetwork", func(t *testing.T) {
		require.NoError(t, repo.DeleteAllForNetwork(ctx, network.ID))
		goals, err := repo.ListByNetwork(ctx, network.ID)
		require.NoError(t, err)
		assert.Empty(t, goals)
	})
}
