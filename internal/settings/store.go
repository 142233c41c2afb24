// Package settings is the typed layer over the persisted key-value
// preferences. Every write persists synchronously and then signals
// subscribers of that key, so components react to changes without polling.
package settings

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

// Repository is the raw storage under the store.
type Repository interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Store reads and writes typed settings records. A corrupt or unreadable
// stored value degrades to the caller's default; no error escapes a getter.
type Store struct {
	repo   Repository
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string][]chan struct{}
}

// NewStore creates a settings store over repo.
func NewStore(repo Repository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		repo:   repo,
		logger: logger,
		subs:   make(map[string][]chan struct{}),
	}
}

// Subscribe registers for change signals on key. The returned channel gets
// a non-blocking tick per change; cancel releases the subscription.
func (s *Store) Subscribe(key string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[key] = append(s.subs[key], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		chans := s.subs[key]
		for i, c := range chans {
			if c == ch {
				s.subs[key] = append(chans[:i], chans[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

func (s *Store) broadcast(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// get unmarshals the stored JSON for key into out, reporting whether out
// was populated. Storage and parse failures are logged and treated as
// "absent" so callers fall back to their default.
func (s *Store) get(key string, out any) bool {
	raw, ok, err := s.repo.Get(key)
	if err != nil {
		s.logger.Warn("settings read failed, using default",
			zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.Warn("stored settings value is corrupt, using default",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// set persists the value and then signals subscribers of key.
func (s *Store) set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.repo.Set(key, string(raw)); err != nil {
		return err
	}
	s.broadcast(key)
	return nil
}

// Privacy returns the privacy settings, falling back to the default.
func (s *Store) Privacy() domain.PrivacySettings {
	v := domain.DefaultPrivacySettings()
	s.get(domain.KeyPrivacySettings, &v)
	return v
}

// SetPrivacy persists the privacy settings.
func (s *Store) SetPrivacy(v domain.PrivacySettings) error {
	return s.set(domain.KeyPrivacySettings, v)
}

// Notifications returns the notification settings, falling back to the default.
func (s *Store) Notifications() domain.NotificationSettings {
	v := domain.DefaultNotificationSettings()
	s.get(domain.KeyNotifications, &v)
	return v
}

// SetNotifications persists the notification settings.
func (s *Store) SetNotifications(v domain.NotificationSettings) error {
	return s.set(domain.KeyNotifications, v)
}

// Telegram returns the Telegram settings; the default is unconfigured.
func (s *Store) Telegram() domain.TelegramSettings {
	var v domain.TelegramSettings
	s.get(domain.KeyTelegram, &v)
	return v
}

// SetTelegram persists the Telegram settings.
func (s *Store) SetTelegram(v domain.TelegramSettings) error {
	return s.set(domain.KeyTelegram, v)
}

// Flag returns a boolean preference such as safeMode or aiAssist.
func (s *Store) Flag(key string) bool {
	var v bool
	s.get(key, &v)
	return v
}

// SetFlag persists a boolean preference.
func (s *Store) SetFlag(key string, v bool) error {
	return s.set(key, v)
}

// Theme returns the persisted theme preference, empty when unset.
func (s *Store) Theme() string {
	var v string
	s.get(domain.KeyTheme, &v)
	return v
}

// SetTheme persists the theme preference.
func (s *Store) SetTheme(v string) error {
	return s.set(domain.KeyTheme, v)
}

// DatasetDefaults returns the remembered default answers for a dataset.
func (s *Store) DatasetDefaults(dataset string) map[string]any {
	v := map[string]any{}
	s.get(domain.DatasetDefaultsPrefix+dataset, &v)
	return v
}

// SetDatasetDefaults persists default answers for a dataset.
func (s *Store) SetDatasetDefaults(dataset string, v map[string]any) error {
	return s.set(domain.DatasetDefaultsPrefix+dataset, v)
}
