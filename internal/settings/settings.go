// Package settings keeps the teacher, class and school the device is set up
// for. Changes are written through immediately.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/attendkeeper/internal/kv"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
)

type Settings struct {
	TeacherName  string `json:"teacherName"`
	ClassSubject string `json:"classSubject"`
	SchoolName   string `json:"schoolName"`
}

// SyncReady reports whether the fields the remote store needs are present.
func (s Settings) SyncReady() bool {
	return s.TeacherName != "" && s.SchoolName != ""
}

func (s Settings) normalized() Settings {
	return Settings{
		TeacherName:  strings.TrimSpace(s.TeacherName),
		ClassSubject: strings.TrimSpace(s.ClassSubject),
		SchoolName:   strings.TrimSpace(s.SchoolName),
	}
}

type Store struct {
	mu      sync.RWMutex
	kv      kv.Store
	current Settings
	logger  logging.Logger
}

func NewStore(store kv.Store, logger logging.Logger) *Store {
	return &Store{kv: store, logger: logger.With("module", "settings")}
}

// Load reads the saved settings. Missing or unreadable data leaves the
// defaults (all empty) in place; only a storage failure is returned.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, kv.KeySettings)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}
	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn(ctx, "ignoring unreadable settings", "error", err)
		return nil
	}
	s.current = loaded.normalized()
	return nil
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save replaces the settings and persists them.
func (s *Store) Save(ctx context.Context, next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, next.normalized())
}

// Update applies fn to a copy of the current settings and saves the result.
func (s *Store) Update(ctx context.Context, fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	next = next.normalized()
	if err := s.saveLocked(ctx, next); err != nil {
		return s.current, err
	}
	return next, nil
}

func (s *Store) saveLocked(ctx context.Context, next Settings) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, kv.KeySettings, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.current = next
	s.logger.Info(ctx, "settings saved", "teacher", next.TeacherName, "school", next.SchoolName)
	return nil
}
