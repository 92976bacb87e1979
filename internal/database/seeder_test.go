package database

import (
	"context"
	"log/slog"
	"testing"

	"field-attendance-api-server/config"
	"field-attendance-api-server/internal/auth"
	"field-attendance-api-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdminOnce(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	cfg := config.AdminConfig{Email: "admin@example.com", Password: "pw", Name: "Admin"}

	require.NoError(t, SeedAdmin(ctx, st, cfg, slog.Default()))
	u, err := st.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, u.Role)
	assert.True(t, auth.CheckPasswordHash("pw", u.PasswordHash))

	require.NoError(t, SeedAdmin(ctx, st, config.AdminConfig{Email: "admin@example.com", Password: "other"}, slog.Default()))
	u, err = st.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("pw", u.PasswordHash))
}

func TestSeedAdminSkippedWithoutConfig(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, SeedAdmin(context.Background(), st, config.AdminConfig{}, slog.Default()))
	_, err := st.FindUserByEmail(context.Background(), "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
