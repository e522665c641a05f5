package inmemdb

import (
	"sync"

	"github.com/trezcool/educloud/core"
)

// Store is a process local core.Storage. Its content is lost on exit.
type Store struct {
	table map[string]string
	mutex sync.RWMutex
}

var _ core.Storage = (*Store)(nil)

func NewStore() *Store {
	return &Store{table: make(map[string]string)}
}

func (s *Store) Get(key string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	val, ok := s.table[key]
	return val, ok, nil
}

func (s *Store) Set(key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[key] = value
	return nil
}

func (s *Store) Delete(keys ...string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, key := range keys {
		delete(s.table, key)
	}
	return nil
}

// Keys returns the stored keys, for tests and debugging.
func (s *Store) Keys() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	keys := make([]string, 0, len(s.table))
	for k := range s.table {
		keys = append(keys, k)
	}
	return keys
}
