package config

import (
	"sync"
	"sync/atomic"
)

// Watcher is notified after a config update has been committed.
type Watcher func(newCfg *Config, changed map[string]bool)

// Validator can veto an update before it is committed.
type Validator func(newCfg *Config, changed map[string]bool) error

// Store holds the live configuration and fans out changes.
type Store struct {
	v          atomic.Pointer[Config]
	mu         sync.RWMutex
	nextID     int
	watchers   []watcherEntry
	validators []validatorEntry
}

type watcherEntry struct {
	id int
	fn Watcher
}

type validatorEntry struct {
	id int
	fn Validator
}

func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.v.Store(cfg)
	return s
}

func (s *Store) Get() *Config {
	return s.v.Load()
}

// Update commits newCfg and notifies watchers in registration order.
func (s *Store) Update(newCfg *Config, changed map[string]bool) {
	s.v.Store(newCfg)
	s.mu.RLock()
	ws := append([]watcherEntry(nil), s.watchers...)
	s.mu.RUnlock()
	for _, w := range ws {
		w.fn(newCfg, changed)
	}
}

// Watch registers w and returns a function that unregisters it.
func (s *Store) Watch(w Watcher) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers = append(s.watchers, watcherEntry{id: id, fn: w})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.watchers {
			if e.id == id {
				s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

// AddValidator registers a validator. If any validator returns error on update, the update will be discarded.
func (s *Store) AddValidator(v Validator) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.validators = append(s.validators, validatorEntry{id: id, fn: v})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.validators {
			if e.id == id {
				s.validators = append(s.validators[:i:i], s.validators[i+1:]...)
				return
			}
		}
	}
}

// UpdateValidated runs validators in registration order before committing the config.
// The first failing validator stops the update and no change is applied.
func (s *Store) UpdateValidated(newCfg *Config, changed map[string]bool) bool {
	s.mu.RLock()
	vals := append([]validatorEntry(nil), s.validators...)
	s.mu.RUnlock()
	for _, v := range vals {
		if err := v.fn(newCfg, changed); err != nil {
			configLogger.Sugar().Warnf("config update rejected: %v", err)
			return false
		}
	}
	s.Update(newCfg, changed)
	return true
}

func cloneConfig(in *Config) *Config {
	out := *in
	return &out
}
