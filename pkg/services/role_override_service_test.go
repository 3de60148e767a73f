package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

func TestRoleOverrideService_SetAndLookup(t *testing.T) {
	repo := newMockRoleOverrideRepo()
	svc := NewRoleOverrideService(repo, zap.NewNop())
	ctx := context.Background()

	saved, err := svc.Set(ctx, &models.RoleOverride{KaitenUserID: " 42 ", Email: "a@example.com", OverrideRoleID: "lead"})
	require.NoError(t, err)
	assert.Equal(t, "42", saved.KaitenUserID)
	assert.NotZero(t, saved.ID)

	_, err = svc.Set(ctx, &models.RoleOverride{KaitenUserID: "42", OverrideRoleID: "dev"})
	require.NoError(t, err)

	lookup, err := svc.Lookup(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"42": "dev"}, lookup)

	got, err := svc.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "dev", got.OverrideRoleID)
}

func TestRoleOverrideService_SetValidation(t *testing.T) {
	svc := NewRoleOverrideService(newMockRoleOverrideRepo(), zap.NewNop())

	_, err := svc.Set(context.Background(), &models.RoleOverride{OverrideRoleID: "dev"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Set(context.Background(), &models.RoleOverride{KaitenUserID: "1", OverrideRoleID: "  "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRoleOverrideService_Delete(t *testing.T) {
	repo := newMockRoleOverrideRepo(&models.RoleOverride{KaitenUserID: "7", OverrideRoleID: "qa"})
	svc := NewRoleOverrideService(repo, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "7"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "7"), apperrors.ErrNotFound)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
