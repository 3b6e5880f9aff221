package memkv

import (
	"context"
	"sync"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
)

// Store is an in-memory core.KeyValueStore, for tests and ephemeral runs.
type Store struct {
	sync.RWMutex
	table  map[string][]byte
	writes int
}

var _ core.KeyValueStore = (*Store)(nil) // interface compliance check

func New() *Store {
	return &Store{table: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()
	value, ok := s.table[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.Lock()
	defer s.Unlock()
	s.table[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.table[key]; !ok {
		return core.ErrKeyNotFound
	}
	delete(s.table, key)
	s.writes++
	return nil
}

// Writes returns the number of Set and Delete calls that changed the store.
func (s *Store) Writes() int {
	s.RLock()
	defer s.RUnlock()
	return s.writes
}
