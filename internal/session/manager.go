package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"crypto-desk-go/internal/api"
	"crypto-desk-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrUsernameTooShort is returned before any network call is made.
var ErrUsernameTooShort = errors.New("username must be at least 2 characters")

// Authenticator is the slice of the API client the manager needs.
type Authenticator interface {
	Login(ctx context.Context, username string) (*api.User, error)
}

// Manager owns the logged-in identity: it resolves the persisted session
// at startup and keeps the local store in step with login/logout. A
// stored session is trusted until explicit logout; there is no expiry or
// revalidation against the server.
type Manager struct {
	db     *gorm.DB
	client Authenticator
	logger *zap.Logger
}

// NewManager creates a new session manager backed by the local database.
func NewManager(db *gorm.DB, client Authenticator, logger *zap.Logger) *Manager {
	return &Manager{db: db, client: client, logger: logger}
}

// Current returns the persisted identity, or nil when nobody is logged in.
func (m *Manager) Current() (*api.User, error) {
	var s models.Session
	if err := m.db.First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read session: %w", err)
	}
	return &api.User{ID: s.UserID, Username: s.Username}, nil
}

// Login validates the display name locally, registers or looks it up on
// the server, and persists the resulting identity as the active session.
func (m *Manager) Login(ctx context.Context, username string) (*api.User, error) {
	username = strings.TrimSpace(username)
	if utf8.RuneCountInString(username) < 2 {
		return nil, ErrUsernameTooShort
	}

	user, err := m.client.Login(ctx, username)
	if err != nil {
		return nil, err
	}

	// Single-row table: replace whatever was there before.
	if err := m.db.Where("1 = 1").Delete(&models.Session{}).Error; err != nil {
		return nil, fmt.Errorf("could not clear previous session: %w", err)
	}
	if err := m.db.Create(&models.Session{UserID: user.ID, Username: user.Username}).Error; err != nil {
		return nil, fmt.Errorf("could not persist session: %w", err)
	}

	m.logger.Info("Logged in", zap.Int("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Logout clears the persisted identity. Logging out when nobody is
// logged in is a no-op.
func (m *Manager) Logout() error {
	if err := m.db.Where("1 = 1").Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("could not clear session: %w", err)
	}
	m.logger.Info("Logged out")
	return nil
}
