// Package preferences persists user settings and the project-id to
// local-directory bindings in a YAML file.
package preferences

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the preferences file name inside the config directory.
const FileName = "preferences.yaml"

// Values is the on-disk document.
type Values struct {
	LastUsername string            `yaml:"last_username,omitempty"`
	LastToken    string            `yaml:"last_token,omitempty"`
	ServerURL    string            `yaml:"server_url,omitempty"`
	LocalDirs    map[string]string `yaml:"local_dirs,omitempty"`
}

// Store is a mutex-guarded view of the preferences file. Every setter
// writes the file before returning.
type Store struct {
	path string

	mu     sync.RWMutex
	values Values
}

// DefaultPath returns <user config dir>/qfieldsync/preferences.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}

	return filepath.Join(dir, "qfieldsync", FileName), nil
}

// Open loads the preferences at path. A missing file yields empty values.
func Open(path string) (*Store, error) {
	store := &Store{path: path}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from config
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read preferences %s: %w", path, err)
	}

	err = yaml.Unmarshal(data, &store.values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse preferences %s: %w", path, err)
	}

	return store, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Values returns a copy of the current values.
func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.values
	out.LocalDirs = make(map[string]string, len(s.values.LocalDirs))

	for id, dir := range s.values.LocalDirs {
		out.LocalDirs[id] = dir
	}

	return out
}

// LocalDir returns the directory bound to projectID, or "".
func (s *Store) LocalDir(projectID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.values.LocalDirs[projectID]
}

// SetLocalDir binds projectID to dir. An empty dir removes the binding.
func (s *Store) SetLocalDir(projectID, dir string) error {
	return s.update(func(v *Values) {
		if dir == "" {
			delete(v.LocalDirs, projectID)
			return
		}

		if v.LocalDirs == nil {
			v.LocalDirs = make(map[string]string)
		}

		v.LocalDirs[projectID] = dir
	})
}

// BoundProjects returns the ids that have a local directory, sorted.
func (s *Store) BoundProjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.values.LocalDirs))
	for id := range s.values.LocalDirs {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// SetCredentials records the last successful login. An empty token logs out.
func (s *Store) SetCredentials(username, token string) error {
	return s.update(func(v *Values) {
		if username != "" {
			v.LastUsername = username
		}

		v.LastToken = token
	})
}

// SetServerURL remembers the server the credentials belong to.
func (s *Store) SetServerURL(serverURL string) error {
	return s.update(func(v *Values) {
		v.ServerURL = serverURL
	})
}

func (s *Store) update(mutate func(*Values)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.values
	next.LocalDirs = make(map[string]string, len(s.values.LocalDirs))

	for id, dir := range s.values.LocalDirs {
		next.LocalDirs[id] = dir
	}

	mutate(&next)

	err := s.write(next)
	if err != nil {
		return err
	}

	s.values = next

	return nil
}

// write saves values through a temp file and rename so a crash never
// leaves a truncated preferences file.
func (s *Store) write(values Values) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	dir := filepath.Dir(s.path)

	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		return fmt.Errorf("failed to create preferences directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp preferences file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return fmt.Errorf("failed to save preferences %s: %w", s.path, err)
	}

	return nil
}
