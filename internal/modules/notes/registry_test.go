package notes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quiknotes/core/internal/docstore"
	"github.com/quiknotes/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string][][]models.Note
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{calls: make(map[string][][]models.Note)}
}

func (r *recordingNotifier) NotesChanged(userID string, notes []models.Note) {
	r.mu.Lock()
	r.calls[userID] = append(r.calls[userID], notes)
	r.mu.Unlock()
}

func (r *recordingNotifier) last(userID string) []models.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	views := r.calls[userID]
	if len(views) == 0 {
		return nil
	}
	return views[len(views)-1]
}

func newTestRegistry(t *testing.T) (*Registry, *recordingNotifier, *docstore.MemoryStore) {
	t.Helper()

	ms := docstore.NewMemoryStore()
	notifier := newRecordingNotifier()
	r := NewRegistry(context.Background(), ms, testQuiet, notifier, zap.NewNop())
	t.Cleanup(r.CloseAll)
	return r, notifier, ms
}

func TestRegistryReusesSession(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	s1, err := r.Session("alice")
	require.NoError(t, err)
	s2, err := r.Session("alice")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	s3, err := r.Session("bob")
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
}

func TestRegistryPublishesOnChange(t *testing.T) {
	r, notifier, _ := newTestRegistry(t)

	s, err := r.Session("alice")
	require.NoError(t, err)

	_, err = s.Create(context.Background(), "hello", "world")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		view := notifier.last("alice")
		return len(view) == 1 && view[0].Title == "hello"
	}, waitTimeout, 5*time.Millisecond)
}

func TestRegistryPublishesPerUser(t *testing.T) {
	r, notifier, ms := newTestRegistry(t)

	_, err := r.Session("alice")
	require.NoError(t, err)
	_, err = r.Session("bob")
	require.NoError(t, err)

	seedNote(ms, "n1", "alice", "mine", "", false, time.Now().UTC())

	require.Eventually(t, func() bool {
		return len(notifier.last("alice")) == 1
	}, waitTimeout, 5*time.Millisecond)

	// Bob sees deliveries for the same collection but his view stays empty.
	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		views := notifier.calls["bob"]
		return len(views) > 0 && len(views[len(views)-1]) == 0
	}, waitTimeout, 5*time.Millisecond)
}

func TestRegistryCloseUser(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	s1, err := r.Session("alice")
	require.NoError(t, err)

	r.CloseUser("alice")
	r.CloseUser("alice") // idempotent

	s2, err := r.Session("alice")
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
}

func TestSessionDeleteActiveClearsBuffer(t *testing.T) {
	r, _, ms := newTestRegistry(t)

	s, err := r.Session("alice")
	require.NoError(t, err)

	seedNote(ms, "n1", "alice", "title", "body", false, time.Now().UTC())
	require.Eventually(t, func() bool {
		_, ok := s.Store().NoteByID("n1")
		return ok
	}, waitTimeout, 5*time.Millisecond)

	s.SetActive("n1")
	title, content := s.Autosave().Buffer()
	require.Equal(t, "title", title)
	require.Equal(t, "body", content)

	require.NoError(t, s.Delete(context.Background(), "n1"))
	assert.Equal(t, "", s.Store().ActiveID())
	title, content = s.Autosave().Buffer()
	assert.Equal(t, "", title)
	assert.Equal(t, "", content)
}
