// Package session persists per-identity conversation state as one JSON
// file per session under a spool directory.
//
// An in-memory index maps the identity email to its current file name;
// the index is rebuilt from a directory scan at startup and is the
// authority for which file is live. Writes go through a temp file plus
// rename so a crash never leaves a half-written record behind.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
)

// ErrNotFound means no session is indexed for the identity.
var ErrNotFound = errors.New("session not found")

// Store is a file-backed session store keyed by identity email.
type Store struct {
	dir    string
	logger log.Logger

	mu    sync.Mutex
	index map[string]string // email -> file name
}

// New opens the store, creating dir if needed, and rebuilds the index
// from the files already present. Unreadable files are skipped with a
// warning rather than failing startup.
func New(dir string, logger log.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("session: directory is required")
	}
	if logger == nil {
		return nil, errors.New("session: logger is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session: creating directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: logger.With("component", "session"),
		index:  make(map[string]string),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("session: scanning directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		sess, err := s.readFile(name)
		if err != nil {
			s.logger.Warn("skipping unreadable session file", "file", name, "error", err)
			continue
		}
		if sess.Email == "" {
			s.logger.Warn("skipping session file without identity", "file", name)
			continue
		}
		s.index[sess.Email] = name
	}

	s.logger.Info("session store ready", "dir", dir, "sessions", len(s.index))
	return s, nil
}

// Create starts a fresh session for the identity. Any existing session
// for the same identity is replaced and its file removed.
func (s *Store) Create(email string) (*Session, error) {
	if email == "" {
		return nil, errors.New("session: email is required")
	}

	now := time.Now().UTC()
	sess := &Session{
		Email:        email,
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastAccessed: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.index[email]; ok {
		if err := os.Remove(filepath.Join(s.dir, old)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("removing replaced session file", "file", old, "error", err)
		}
	}

	name := sess.ID + ".json"
	if err := s.writeFile(name, sess); err != nil {
		return nil, err
	}
	s.index[email] = name

	s.logger.Debug("session created", "email", email, "session_id", sess.ID)
	return sess, nil
}

// Get loads the identity's session, refreshing its last-accessed stamp.
// A file that can no longer be read drops out of the index and reports
// ErrNotFound, matching a session that never existed.
func (s *Store) Get(email string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.index[email]
	if !ok {
		return nil, ErrNotFound
	}

	sess, err := s.readFile(name)
	if err != nil {
		s.logger.Warn("dropping unreadable session", "email", email, "file", name, "error", err)
		delete(s.index, email)
		return nil, ErrNotFound
	}

	sess.LastAccessed = time.Now().UTC()
	if err := s.writeFile(name, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Update applies a mutation to the identity's session and persists the
// result. The last-accessed stamp is refreshed after the mutation so
// callers cannot accidentally rewind it.
func (s *Store) Update(email string, apply func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.index[email]
	if !ok {
		return nil, ErrNotFound
	}

	sess, err := s.readFile(name)
	if err != nil {
		s.logger.Warn("dropping unreadable session", "email", email, "file", name, "error", err)
		delete(s.index, email)
		return nil, ErrNotFound
	}

	apply(sess)
	sess.Email = email // the identity key is immutable
	sess.LastAccessed = time.Now().UTC()

	if err := s.writeFile(name, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes the identity's session and its file. Deleting an
// unknown identity reports ErrNotFound.
func (s *Store) Delete(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.index[email]
	if !ok {
		return ErrNotFound
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: removing file: %w", err)
	}
	delete(s.index, email)

	s.logger.Debug("session deleted", "email", email)
	return nil
}

// All returns every indexed session, sorted by identity. Sessions whose
// files have become unreadable are skipped.
func (s *Store) All() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	emails := make([]string, 0, len(s.index))
	for email := range s.index {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	out := make([]*Session, 0, len(emails))
	for _, email := range emails {
		sess, err := s.readFile(s.index[email])
		if err != nil {
			continue
		}
		out = append(out, sess)
	}
	return out
}

// Ping verifies the spool directory is still writable. Used by the
// readiness probe.
func (s *Store) Ping() error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("session: directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Len returns the number of indexed sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *Store) readFile(name string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return &sess, nil
}

// writeFile persists atomically via temp file and rename.
func (s *Store) writeFile(name string, sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("session: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: replacing file: %w", err)
	}
	return nil
}
