package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shravan4518/ppsrest/pkg/database/models"
	"github.com/shravan4518/ppsrest/pkg/database/repositories"
)

func setupAuthService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AdminUser{}))

	adminRepo := repositories.NewAdminUserRepository(db)
	tokenManager := NewTokenManager("test-secret-key", time.Hour)
	return NewService(adminRepo, tokenManager, []string{"Admin Users"})
}

func TestServiceAuthenticate(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.CreateAdmin("restadmin", "password123")
	require.NoError(t, err)

	t.Run("Valid credentials yield a verifiable api_key", func(t *testing.T) {
		token, err := svc.Authenticate("restadmin", "password123", "Admin Users")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "restadmin", claims.Username)
		assert.Equal(t, "Admin Users", claims.Realm)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := svc.Authenticate("restadmin", "wrong", "Admin Users")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := svc.Authenticate("nobody", "password123", "Admin Users")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown realm", func(t *testing.T) {
		_, err := svc.Authenticate("restadmin", "password123", "Users")
		assert.ErrorIs(t, err, ErrUnknownRealm)
	})
}

func TestServiceInactiveAdmin(t *testing.T) {
	svc := setupAuthService(t)

	admin, err := svc.CreateAdmin("restadmin", "password123")
	require.NoError(t, err)

	admin.Enabled = false
	require.NoError(t, svc.adminRepo.Update(admin))

	_, err = svc.Authenticate("restadmin", "password123", "Admin Users")
	assert.ErrorIs(t, err, ErrAdminInactive)
}

func TestServiceCreateAdmin(t *testing.T) {
	svc := setupAuthService(t)

	admin, err := svc.CreateAdmin("restadmin", "password123")
	require.NoError(t, err)
	assert.True(t, admin.Enabled)
	assert.NotEqual(t, "password123", admin.PasswordHash)
	assert.True(t, admin.CheckPassword("password123"))

	_, err = svc.CreateAdmin("restadmin", "another")
	assert.ErrorIs(t, err, ErrAdminExists)
}
