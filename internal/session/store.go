package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/content"
)

// Store keeps live sessions in memory. Nothing survives a restart.
type Store interface {
	Create(cat content.Category, env content.Environment) (*Session, error)
	Get(id string) (*Session, error)
	Delete(id string) error
	List() []View
	Sweep(idle time.Duration) int
}

type memoryStore struct {
	cfg      Config
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore(cfg Config) Store {
	return &memoryStore{
		cfg:      cfg.withDefaults(),
		sessions: map[string]*Session{},
	}
}

func (m *memoryStore) Create(cat content.Category, env content.Environment) (*Session, error) {
	s, err := New(cat, env, m.cfg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

// List returns every session, most recently updated first.
func (m *memoryStore) List() []View {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]View, 0, len(all))
	for _, s := range all {
		out = append(out, s.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Sweep drops sessions untouched for longer than idle and reports how many.
func (m *memoryStore) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	m.mu.Lock()
	var dropped []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.updated.Before(cutoff)
		s.mu.Unlock()
		if stale {
			dropped = append(dropped, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range dropped {
		s.Close()
	}
	return len(dropped)
}

const minSweepInterval = time.Second

// SweepInterval is how often a store with the given idle limit is swept.
func SweepInterval(idle time.Duration) time.Duration {
	if every := idle / 4; every > minSweepInterval {
		return every
	}
	return minSweepInterval
}

// RunSweeper drops idle sessions from store until ctx ends.
func RunSweeper(ctx context.Context, store Store, idle time.Duration, log *zap.Logger) {
	t := time.NewTicker(SweepInterval(idle))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := store.Sweep(idle); n > 0 {
				log.Info("swept idle sessions", zap.Int("count", n))
			}
		}
	}
}
