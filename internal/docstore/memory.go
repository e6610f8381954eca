package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and the memory driver.
// It mirrors the remote contract: every mutation pushes a full ordered
// snapshot to all live subscriptions.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
	subs map[*memorySubscription]struct{}

	// Now supplies the store clock; overridable for deterministic ordering.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]interface{}),
		subs: make(map[*memorySubscription]struct{}),
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

type memorySubscription struct {
	store     *MemoryStore
	snapshots chan Snapshot
	done      chan struct{}
	once      sync.Once
}

func (m *memorySubscription) Snapshots() <-chan Snapshot { return m.snapshots }

// Cancel removes the subscription and closes its channel. Closing under
// the store lock keeps it ordered against broadcast sends.
func (m *memorySubscription) Cancel() {
	m.once.Do(func() {
		m.store.mu.Lock()
		delete(m.store.subs, m)
		close(m.done)
		close(m.snapshots)
		m.store.mu.Unlock()
	})
}

func (s *MemoryStore) Subscribe(ctx context.Context) (Subscription, error) {
	sub := &memorySubscription{
		store:     s,
		snapshots: make(chan Snapshot, 64),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	sub.snapshots <- initial

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Cancel()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

func (s *MemoryStore) Insert(ctx context.Context, fields map[string]interface{}) (string, error) {
	now := s.Now()
	doc := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	doc["created_at"] = now
	doc["updated_at"] = now

	id := uuid.New().String()
	s.mu.Lock()
	s.docs[id] = doc
	s.mu.Unlock()

	s.broadcast()
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	doc, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc["updated_at"] = s.Now()
	s.mu.Unlock()

	s.broadcast()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()

	s.broadcast()
	return nil
}

// Seed inserts a document with explicit fields and timestamps, bypassing
// the store clock. Intended for test fixtures.
func (s *MemoryStore) Seed(id string, fields map[string]interface{}) {
	doc := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	s.mu.Lock()
	s.docs[id] = doc
	s.mu.Unlock()
	s.broadcast()
}

func (s *MemoryStore) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	for sub := range s.subs {
		sub.snapshots <- snap
	}
}

func (s *MemoryStore) snapshotLocked() Snapshot {
	docs := make([]Doc, 0, len(s.docs))
	for id, fields := range s.docs {
		copied := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		docs = append(docs, Doc{ID: id, Fields: copied})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docCreatedAt(docs[i]).After(docCreatedAt(docs[j]))
	})
	return Snapshot{Docs: docs}
}

func docCreatedAt(d Doc) time.Time {
	if t, ok := d.Fields["created_at"].(time.Time); ok {
		return t
	}
	return time.Time{}
}
