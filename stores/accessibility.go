package stores

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
)

// AccessibilitySettings are the display preferences of the user.
type AccessibilitySettings struct {
	FontScale      float64 `json:"fontScale"`
	HighContrast   bool    `json:"highContrast"`
	ReduceMotion   bool    `json:"reduceMotion"`
	ScreenReader   bool    `json:"screenReader"`
	Language       string  `json:"language"`
	ColorBlindMode string  `json:"colorBlindMode,omitempty"`
}

func DefaultAccessibilitySettings() AccessibilitySettings {
	return AccessibilitySettings{FontScale: 1, Language: "en"}
}

// AccessibilityStore persists the settings under "accessibility-settings".
type AccessibilityStore struct {
	subscribers[AccessibilitySettings]

	mu       sync.RWMutex
	settings AccessibilitySettings
	storage  core.Storage
}

func NewAccessibilityStore(storage core.Storage) *AccessibilityStore {
	return &AccessibilityStore{settings: DefaultAccessibilitySettings(), storage: storage}
}

func (s *AccessibilityStore) Settings() AccessibilitySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Load reads the persisted settings; missing ones keep their default.
func (s *AccessibilityStore) Load() error {
	raw, found, err := s.storage.Get(core.KeyAccessibility)
	if err != nil {
		return errors.Wrap(err, "reading accessibility settings")
	}
	settings := DefaultAccessibilitySettings()
	if found && raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return errors.Wrap(err, "decoding accessibility settings")
		}
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.notify(settings)
	return nil
}

// Update changes the settings with fn and persists them.
func (s *AccessibilityStore) Update(fn func(*AccessibilitySettings)) error {
	s.mu.Lock()
	settings := s.settings
	fn(&settings)
	if settings.FontScale <= 0 {
		settings.FontScale = 1
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "encoding accessibility settings")
	}
	if err := s.storage.Set(core.KeyAccessibility, string(raw)); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "storing accessibility settings")
	}
	s.settings = settings
	s.mu.Unlock()
	s.notify(settings)
	return nil
}

// Reset restores the defaults.
func (s *AccessibilityStore) Reset() error {
	return s.Update(func(st *AccessibilitySettings) { *st = DefaultAccessibilitySettings() })
}
