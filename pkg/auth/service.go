package auth

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/shravan4518/ppsrest/pkg/database/models"
	"github.com/shravan4518/ppsrest/pkg/database/repositories"
)

var (
	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownRealm is returned when the requested realm is not configured
	ErrUnknownRealm = errors.New("unknown authentication realm")
	// ErrAdminInactive is returned when authenticating with a disabled admin account
	ErrAdminInactive = errors.New("admin account is inactive")
	// ErrAdminExists is returned when creating an admin that already exists
	ErrAdminExists = errors.New("admin already exists")
)

// Service authenticates admin credentials against a realm and mints
// api_keys for successful logins.
type Service struct {
	adminRepo    *repositories.AdminUserRepository
	tokenManager *TokenManager
	realms       map[string]bool
}

// NewService creates an authentication service limited to the given realms.
func NewService(adminRepo *repositories.AdminUserRepository, tokenManager *TokenManager, realms []string) *Service {
	realmSet := make(map[string]bool, len(realms))
	for _, r := range realms {
		realmSet[r] = true
	}
	return &Service{
		adminRepo:    adminRepo,
		tokenManager: tokenManager,
		realms:       realmSet,
	}
}

// Authenticate checks credentials within a realm and returns a fresh
// api_key on success.
func (s *Service) Authenticate(username, password, realm string) (string, error) {
	if !s.realms[realm] {
		log.Printf("auth: realm %q is not configured", realm)
		return "", ErrUnknownRealm
	}

	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("auth: admin %s not found", username)
			return "", ErrInvalidCredentials
		}
		log.Printf("auth: failed to look up admin %s: %v", username, err)
		return "", err
	}

	if !admin.Enabled {
		log.Printf("auth: admin %s is inactive", username)
		return "", ErrAdminInactive
	}

	if !admin.CheckPassword(password) {
		log.Printf("auth: invalid password for admin %s", username)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokenManager.Mint(username, realm)
	if err != nil {
		log.Printf("auth: failed to mint api_key for %s: %v", username, err)
		return "", err
	}

	return token, nil
}

// CreateAdmin creates a new admin account with a bcrypt-hashed password.
func (s *Service) CreateAdmin(username, password string) (*models.AdminUser, error) {
	if _, err := s.adminRepo.GetByUsername(username); err == nil {
		return nil, ErrAdminExists
	}

	admin := &models.AdminUser{
		Username: username,
		Enabled:  true,
	}
	if err := admin.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.adminRepo.Create(admin); err != nil {
		return nil, err
	}

	return admin, nil
}

// ValidateToken verifies an api_key and returns its claims if valid.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.tokenManager.Verify(tokenString)
}
