// Package session holds session-scoped secrets with a same-process change
// feed. Values live in memory and are optionally mirrored to a Persister so
// they survive a client restart within the same session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Op identifies the mutation that produced a Change.
type Op int

const (
	OpStore Op = iota + 1
	OpClear
	OpNotify
)

func (o Op) String() string {
	switch o {
	case OpStore:
		return "store"
	case OpClear:
		return "clear"
	case OpNotify:
		return "notify"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Change is delivered to listeners after every Store, Clear and Notify.
// Value is the stored value for OpStore and empty otherwise.
type Change struct {
	Name  string
	Value string
	Op    Op
}

// Listener receives changes synchronously on the mutating goroutine.
type Listener func(Change)

// Persister mirrors session values outside the process.
type Persister interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

type listenerEntry struct {
	fn Listener
}

// Store is the session token store. It is safe for concurrent use. Listeners
// run outside the store's lock and may call back into the store.
type Store struct {
	persister Persister
	logger    *slog.Logger

	mu        sync.RWMutex
	values    map[string]string
	listeners []*listenerEntry
}

// New returns a Store. A nil persister keeps values in memory only.
func New(p Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		persister: p,
		logger:    logger,
		values:    make(map[string]string),
	}
}

// Load hydrates the store from the persister. Values already set in memory
// win over persisted ones. Listeners are not notified.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	stored, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	s.mu.Lock()
	for k, v := range stored {
		if _, ok := s.values[k]; !ok {
			s.values[k] = v
		}
	}
	s.mu.Unlock()
	s.logger.Debug("session loaded", "keys", len(stored))
	return nil
}

// Store sets name to value. Memory and listeners are always updated; a
// persister failure is returned afterwards.
func (s *Store) Store(ctx context.Context, name, value string) error {
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()

	var err error
	if s.persister != nil {
		if err = s.persister.Save(ctx, name, value); err != nil {
			s.logger.Warn("session persist failed", "key", name, "error", err)
			err = fmt.Errorf("persist session value %q: %w", name, err)
		}
	}
	s.emit(Change{Name: name, Value: value, Op: OpStore})
	return err
}

// Retrieve returns the value for name and whether it is set.
func (s *Store) Retrieve(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is set to a non-empty value.
func (s *Store) Has(name string) bool {
	v, ok := s.Retrieve(name)
	return ok && v != ""
}

// Clear removes name. Listeners fire even when name was not set.
func (s *Store) Clear(ctx context.Context, name string) error {
	s.mu.Lock()
	delete(s.values, name)
	s.mu.Unlock()

	var err error
	if s.persister != nil {
		if err = s.persister.Delete(ctx, name); err != nil {
			s.logger.Warn("session persist failed", "key", name, "error", err)
			err = fmt.Errorf("delete session value %q: %w", name, err)
		}
	}
	s.emit(Change{Name: name, Op: OpClear})
	return err
}

// Notify announces that the value for name changed in a way consumers must
// act on, without mutating it.
func (s *Store) Notify(name string) {
	s.emit(Change{Name: name, Op: OpNotify})
}

// OnChange registers fn and returns a function that unregisters it. Calling
// the returned function more than once is a no-op.
func (s *Store) OnChange(fn Listener) func() {
	entry := &listenerEntry{fn: fn}
	s.mu.Lock()
	s.listeners = append(s.listeners, entry)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.listeners {
				if e == entry {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) emit(c Change) {
	s.mu.RLock()
	snapshot := make([]*listenerEntry, len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.RUnlock()

	for _, e := range snapshot {
		e.fn(c)
	}
}
