// Package prefstore keeps each user's chosen language in memory and mirrors it to a JSON file.
package prefstore

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"ipril-bot/internal/fsstore"
	"ipril-bot/internal/lang"
)

// ErrStorage wraps failures to read or write the backing file.
var ErrStorage = errors.New("preference storage error")

type entry struct {
	Language lang.Code `json:"language"`
}

// Opts is a carrier of options for Store.
type Opts struct {
	Path   string
	Logger *slog.Logger
}

// Store maps user ids to language codes. Every mutation rewrites the whole file atomically.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	prefs map[int64]lang.Code
}

func NewStore(opts Opts) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   opts.Path,
		logger: logger.With("component", "prefstore"),
		prefs:  make(map[int64]lang.Code),
	}
}

// Load replaces the in-memory mapping with the file contents and returns the number of users.
// A missing or unreadable file leaves the store empty; invalid entries are skipped.
func (s *Store) Load() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = make(map[int64]lang.Code)

	var raw map[string]entry
	found, err := fsstore.ReadJSON(s.path, &raw)
	if err != nil {
		s.logger.Error("failed to load preferences, starting empty",
			"op", "load", "path", s.path, "error", fmt.Errorf("%w: %w", ErrStorage, err))
		return 0
	}
	if !found {
		s.logger.Info("no preference file yet", "path", s.path)
		return 0
	}

	for key, e := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.logger.Warn("skipping preference with bad user id", "op", "load", "user_id", key)
			continue
		}
		if !e.Language.Valid() {
			s.logger.Warn("skipping preference with unknown language",
				"op", "load", "user_id", id, "language", e.Language)
			continue
		}
		s.prefs[id] = e.Language
	}

	s.logger.Info("preferences loaded", "path", s.path, "users", len(s.prefs))
	return len(s.prefs)
}

// Get returns the user's language or lang.Default. It never creates an entry.
func (s *Store) Get(userID int64) lang.Code {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.prefs[userID]; ok {
		return c
	}
	return lang.Default
}

// Set validates code and persists it for userID. On a write failure the previous
// value is restored so memory never runs ahead of the file.
func (s *Store) Set(userID int64, code string) (lang.Code, error) {
	c, err := lang.Parse(code)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.prefs[userID]
	if existed && prev == c {
		return c, nil
	}
	s.prefs[userID] = c

	if err := s.persist(); err != nil {
		if existed {
			s.prefs[userID] = prev
		} else {
			delete(s.prefs, userID)
		}
		s.logger.Error("failed to save preference", "op", "set", "user_id", userID, "language", c, "error", err)
		return "", err
	}

	s.logger.Info("language changed", "user_id", userID, "from", prev, "to", c)
	return c, nil
}

// Ensure creates the default entry for a user seen for the first time.
func (s *Store) Ensure(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prefs[userID]; ok {
		return nil
	}
	s.prefs[userID] = lang.Default

	if err := s.persist(); err != nil {
		delete(s.prefs, userID)
		s.logger.Error("failed to save new user", "op", "ensure", "user_id", userID, "error", err)
		return err
	}
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prefs)
}

func (s *Store) Path() string {
	return s.path
}

// persist must be called with mu held.
func (s *Store) persist() error {
	raw := make(map[string]entry, len(s.prefs))
	for id, c := range s.prefs {
		raw[strconv.FormatInt(id, 10)] = entry{Language: c}
	}
	if err := fsstore.WriteJSONAtomic(s.path, raw, fsstore.FileOptions{}); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
