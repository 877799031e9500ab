package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/singlestat/pkg/types"
)

// Entry is the newest snapshot of a source together with the time it was
// received and how many snapshots the source has pushed so far.
type Entry struct {
	Snapshot  *types.Snapshot
	UpdatedAt time.Time
	Pushes    int
}

// Store is a thread-safe in-memory snapshot store, keyed by source ID.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests

	onEvict func(sourceID string)
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the retention period the store was created with.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the snapshot for snap.SourceID.
// Callers must not modify snap after calling Put.
func (s *Store) Put(snap *types.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pushes := 1
	if prev, ok := s.data[snap.SourceID]; ok {
		pushes = prev.Pushes + 1
	}
	s.data[snap.SourceID] = &Entry{
		Snapshot:  snap,
		UpdatedAt: s.now(),
		Pushes:    pushes,
	}
}

// Get returns a copy of the live entry for sourceID. Entries older than the
// TTL are reported as missing even before Run evicts them.
func (s *Store) Get(sourceID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sourceID]
	if !ok || !s.live(e, s.now()) {
		return Entry{}, false
	}
	return *e, true
}

// List returns copies of all live entries ordered by source ID.
func (s *Store) List() []Entry {
	s.mu.RLock()
	now := s.now()
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, *e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Snapshot.SourceID < out[j].Snapshot.SourceID
	})
	return out
}

// Snapshots returns every held snapshot, including entries past the TTL
// that Run has not evicted yet. Rules about silent sources read this view.
func (s *Store) Snapshots() []*types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Snapshot, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e.Snapshot)
	}
	return out
}

// OnEvict registers fn to be called with the ID of every evicted source.
// It must be set before Run starts.
func (s *Store) OnEvict(fn func(sourceID string)) {
	s.onEvict = fn
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
// The eviction hook runs after the lock is released.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	var removed []string
	for id, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, id := range removed {
			s.onEvict(id)
		}
	}
	return len(removed)
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale snapshots", "count", n)
			}
		}
	}
}

func (s *Store) live(e *Entry, now time.Time) bool {
	return e.UpdatedAt.After(now.Add(-s.ttl))
}
