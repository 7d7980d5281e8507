// Package session keeps the signed-in role and profile in the KV boundary.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/persist"
)

// Default keys.
const (
	DefaultRoleKey = "userRole"
	DefaultUserKey = "userData"
)

// Config names the session keys.
type Config struct {
	RoleKey string
	UserKey string
}

// Manager reads and writes the session.
type Manager struct {
	kv     persist.KV
	config Config
	logger zerolog.Logger
}

// NewManager creates a Manager over kv.
func NewManager(kv persist.KV, config Config) *Manager {
	if config.RoleKey == "" {
		config.RoleKey = DefaultRoleKey
	}
	if config.UserKey == "" {
		config.UserKey = DefaultUserKey
	}
	return &Manager{kv: kv, config: config, logger: logging.Component("session")}
}

// Login stores role with its demo profile.
func (m *Manager) Login(ctx context.Context, role models.Role) (*models.Session, error) {
	if role != models.RoleAdmin && role != models.RoleAgent {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidRole, role)
	}
	profile := models.DemoProfile(role)
	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := m.kv.Set(ctx, m.config.RoleKey, string(role)); err != nil {
		return nil, &models.PersistenceError{Op: "write", Key: m.config.RoleKey, Err: err}
	}
	if err := m.kv.Set(ctx, m.config.UserKey, string(data)); err != nil {
		return nil, &models.PersistenceError{Op: "write", Key: m.config.UserKey, Err: err}
	}

	m.logger.Info().Str("role", string(role)).Str("profile_id", profile.ID).Msg("signed in")
	return &models.Session{Role: role, Profile: profile}, nil
}

// Current returns the stored session, or nil when either key is missing or
// unparsable.
func (m *Manager) Current(ctx context.Context) (*models.Session, error) {
	rawRole, ok, err := m.kv.Get(ctx, m.config.RoleKey)
	if err != nil {
		return nil, &models.PersistenceError{Op: "read", Key: m.config.RoleKey, Err: err}
	}
	if !ok {
		return nil, nil
	}
	rawUser, ok, err := m.kv.Get(ctx, m.config.UserKey)
	if err != nil {
		return nil, &models.PersistenceError{Op: "read", Key: m.config.UserKey, Err: err}
	}
	if !ok {
		return nil, nil
	}

	role, err := models.ParseRole(rawRole)
	if err != nil {
		m.logger.Warn().Err(err).Msg("stored role unparsable")
		return nil, nil
	}
	var profile models.Profile
	if err := json.Unmarshal([]byte(rawUser), &profile); err != nil {
		m.logger.Warn().Err(err).Msg("stored profile unparsable")
		return nil, nil
	}
	return &models.Session{Role: role, Profile: profile}, nil
}

// Logout removes both keys.
func (m *Manager) Logout(ctx context.Context) error {
	for _, key := range []string{m.config.RoleKey, m.config.UserKey} {
		if err := m.kv.Delete(ctx, key); err != nil {
			return &models.PersistenceError{Op: "delete", Key: key, Err: err}
		}
	}
	m.logger.Info().Msg("signed out")
	return nil
}
