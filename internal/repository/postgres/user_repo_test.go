package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/repository/postgres"
	"github.com/dom/institutional-site/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	email := "admin@example.org"
	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{
			name: "successful creation",
			user: &domain.User{
				Username:     "testuser",
				Name:         "Test User",
				Email:        &email,
				PasswordHash: "hashedpassword",
				Role:         domain.UserRoleAdmin,
			},
		},
		{
			name: "duplicate username",
			user: &domain.User{
				Username:     "testuser",
				Name:         "Other",
				PasswordHash: "hashedpassword2",
				Role:         domain.UserRoleEmployee,
			},
			wantErr: domain.ErrAlreadyExists,
		},
		{
			name: "duplicate email",
			user: &domain.User{
				Username:     "another",
				Name:         "Another",
				Email:        &email,
				PasswordHash: "hashedpassword3",
				Role:         domain.UserRoleEmployee,
			},
			wantErr: domain.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, tt.user.ID)
		})
	}
}

func TestUserRepository_Lookups(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().
		WithUsername("lookup_user").
		WithEmail("lookup@example.org").
		Build(t, testDB.DB)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "lookup_user", got.Username)

	got, err = repo.GetByUsername(ctx, "lookup_user")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByUsername(ctx, "LOOKUP_USER")
	assert.ErrorIs(t, err, domain.ErrNotFound, "usernames are case-sensitive")

	got, err = repo.GetByEmail(ctx, "lookup@example.org")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByID(ctx, user.ID+1000)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, user.ID+1000, "x"), domain.ErrNotFound)
}

func TestUserRepository_ResetTokenLifecycle(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	now := time.Now()
	expiry := now.Add(time.Hour)

	require.NoError(t, repo.SetResetToken(ctx, user.ID, "tok-1", expiry))
	// A second request overwrites the first token.
	require.NoError(t, repo.SetResetToken(ctx, user.ID, "tok-2", expiry))

	_, err := repo.GetByResetToken(ctx, "tok-1", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repo.GetByResetToken(ctx, "tok-2", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByResetToken(ctx, "tok-2", expiry.Add(time.Second))
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired tokens must not match")

	require.NoError(t, repo.ConsumeResetToken(ctx, "tok-2", now, "reset-hash"))
	assert.ErrorIs(t, repo.ConsumeResetToken(ctx, "tok-2", now, "again"), domain.ErrNotFound)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "reset-hash", got.PasswordHash)
	assert.Nil(t, got.ResetToken)
	assert.Nil(t, got.ResetTokenExpiry)
}
