package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveSnapshot(t *testing.T, sub Subscription) Snapshot {
	t.Helper()
	select {
	case snap := <-sub.Snapshots():
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestMemoryStoreInitialSnapshot(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("n1", map[string]interface{}{"title": "a"})

	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Cancel()

	snap := receiveSnapshot(t, sub)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, "n1", snap.Docs[0].ID)
}

func TestMemoryStoreInsertBroadcasts(t *testing.T) {
	s := NewMemoryStore()
	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Cancel()

	receiveSnapshot(t, sub) // initial, empty

	id, err := s.Insert(context.Background(), map[string]interface{}{"title": "a"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap := receiveSnapshot(t, sub)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, id, snap.Docs[0].ID)
	assert.Equal(t, "a", snap.Docs[0].Fields["title"])
	assert.IsType(t, time.Time{}, snap.Docs[0].Fields["created_at"])
}

func TestMemoryStoreSnapshotsOrderedNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s.Seed("old", map[string]interface{}{"created_at": base})
	s.Seed("new", map[string]interface{}{"created_at": base.Add(time.Hour)})

	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Cancel()

	snap := receiveSnapshot(t, sub)
	require.Len(t, snap.Docs, 2)
	assert.Equal(t, "new", snap.Docs[0].ID)
	assert.Equal(t, "old", snap.Docs[1].ID)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "ghost", map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("n1", map[string]interface{}{"title": "a"})

	require.NoError(t, s.Delete(context.Background(), "n1"))
	require.NoError(t, s.Delete(context.Background(), "n1"))
}

func TestMemoryStoreCancelStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)

	receiveSnapshot(t, sub)
	sub.Cancel()
	sub.Cancel() // idempotent

	// A mutation after cancel must not block the store.
	_, err = s.Insert(context.Background(), map[string]interface{}{"title": "a"})
	require.NoError(t, err)
}

func TestMemoryStoreContextCancelUnsubscribes(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := s.Subscribe(ctx)
	require.NoError(t, err)
	receiveSnapshot(t, sub)

	cancel()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.subs) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("n1", map[string]interface{}{"title": "original"})

	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Cancel()

	snap := receiveSnapshot(t, sub)
	snap.Docs[0].Fields["title"] = "mutated"

	sub2, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub2.Cancel()

	snap2 := receiveSnapshot(t, sub2)
	assert.Equal(t, "original", snap2.Docs[0].Fields["title"])
}
