//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/testhelpers"
)

func TestRoleOverrideRepository_UpsertAndDelete(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testDB.Truncate(t, "role_overrides")
	repo := NewRoleOverrideRepository(testDB.DB)
	ctx := context.Background()

	o := &models.RoleOverride{KaitenUserID: "7", Email: "anna@example.com", OverrideRoleID: "3"}
	require.NoError(t, repo.Upsert(ctx, o))
	assert.NotZero(t, o.ID)

	o2 := &models.RoleOverride{KaitenUserID: "7", Email: "anna@example.com", OverrideRoleID: "4"}
	require.NoError(t, repo.Upsert(ctx, o2))
	assert.Equal(t, o.ID, o2.ID)

	got, err := repo.GetByUser(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "4", got.OverrideRoleID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "7"))
	assert.ErrorIs(t, repo.Delete(ctx, "7"), apperrors.ErrNotFound)

	_, err = repo.GetByUser(ctx, "7")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
