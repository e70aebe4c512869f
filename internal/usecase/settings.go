package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"LeoneAI/internal/domain/models"
	drepo "LeoneAI/internal/domain/repository"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"

	"github.com/creasty/defaults"
)

// PreferencePusher mirrors local settings to the server.
type PreferencePusher interface {
	UpdatePreferences(ctx context.Context, s models.Settings) error
}

// SettingsManager owns the leone_settings blob and nothing else in storage.
type SettingsManager struct {
	mu      sync.RWMutex
	current models.Settings
	loaded  bool

	store  drepo.SessionStore
	pusher PreferencePusher
	auth   func() bool
	log    *applogger.Logger
}

// NewSettingsManager builds a manager. pusher may be nil; isAuthenticated
// gates the server push so anonymous users only save locally.
func NewSettingsManager(store drepo.SessionStore, pusher PreferencePusher, isAuthenticated func() bool, l *applogger.Logger) *SettingsManager {
	if l == nil {
		l = applogger.Nop()
	}
	if isAuthenticated == nil {
		isAuthenticated = func() bool { return false }
	}
	return &SettingsManager{store: store, pusher: pusher, auth: isAuthenticated, log: l.Named("settings")}
}

// Load reads the persisted blob; missing or unreadable blobs yield defaults.
func (m *SettingsManager) Load(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	if err := defaults.Set(&s); err != nil {
		return s, fmt.Errorf("apply defaults: %w", err)
	}

	raw, err := m.store.Get(ctx, models.SettingsKey)
	switch {
	case errors.Is(err, drepo.ErrNotFound):
	case err != nil:
		return s, fmt.Errorf("read settings: %w", err)
	default:
		if err := json.Unmarshal(raw, &s); err != nil {
			m.log.Warn("settings blob unreadable, using defaults", applogger.Error(err))
			s = models.Settings{}
			_ = defaults.Set(&s)
		}
	}

	m.mu.Lock()
	m.current, m.loaded = s, true
	m.mu.Unlock()
	return s, nil
}

// Get returns the cached settings, loading them on first use.
func (m *SettingsManager) Get(ctx context.Context) (models.Settings, error) {
	m.mu.RLock()
	s, ok := m.current, m.loaded
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	return m.Load(ctx)
}

// Save validates and persists the whole blob, then pushes preferences to the
// server when logged in. A failed push is returned but the local save stands.
func (m *SettingsManager) Save(ctx context.Context, s models.Settings) error {
	if err := pkghttp.ValidateStruct(ctx, &s); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := m.store.Set(ctx, models.SettingsKey, raw); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}

	m.mu.Lock()
	m.current, m.loaded = s, true
	m.mu.Unlock()

	if m.pusher == nil || !m.auth() {
		return nil
	}
	if err := m.pusher.UpdatePreferences(ctx, s); err != nil {
		m.log.Warn("preferences push failed", applogger.Error(err))
		return err
	}
	return nil
}
