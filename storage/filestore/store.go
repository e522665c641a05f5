// Package filestore persists client state as a small JSON document on disk.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
)

// Store is a core.Storage backed by one JSON file. Every write rewrites the file atomically.
type Store struct {
	path  string
	mutex sync.Mutex
}

var _ core.Storage = (*Store)(nil)

// Open returns a Store for path, creating its directory if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating state directory")
	}
	return &Store{path: path}, nil
}

func (s *Store) Get(key string) (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	val, ok := data[key]
	return val, ok, nil
}

func (s *Store) Set(key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(data)
}

func (s *Store) Delete(keys ...string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(data, key)
	}
	return s.save(data)
}

func (s *Store) load() (map[string]string, error) {
	data := make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading state file")
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "decoding state file")
	}
	return data, nil
}

func (s *Store) save(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding state file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*")
	if err != nil {
		return errors.Wrap(err, "creating temp state file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temp state file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "securing temp state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp state file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing state file")
}
