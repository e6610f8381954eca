package notes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quiknotes/core/internal/docstore"
	"github.com/quiknotes/core/internal/models"
	"go.uber.org/zap"
)

// Store maintains a live, user-scoped, sorted view of the notes collection
// and provides the write operations. Every subscription delivery replaces
// the local collection wholesale; the only local mutation outside a
// delivery is the optimistic pin flip.
type Store struct {
	mu     sync.Mutex
	ds     docstore.Store
	logger *zap.Logger
	userID string

	notes    []models.Note
	query    string
	filtered []models.Note
	activeID string

	sub      docstore.Subscription
	done     chan struct{}
	onChange func()
}

func NewStore(ds docstore.Store, userID string, logger *zap.Logger) *Store {
	return &Store{
		ds:     ds,
		logger: logger,
		userID: userID,
		done:   make(chan struct{}),
	}
}

// SetOnChange registers a hook invoked after every collection or filtered
// view change. Called without the store lock held.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Subscribe establishes the standing subscription and starts consuming
// deliveries in order. Call once per store.
func (s *Store) Subscribe(ctx context.Context) error {
	if s.userID == "" {
		return fmt.Errorf("subscribe requires a signed-in user")
	}
	sub, err := s.ds.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe notes: %w", err)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		for snap := range sub.Snapshots() {
			s.applySnapshot(snap)
		}
	}()
	return nil
}

// Close cancels the subscription and waits for the consume loop to drain.
func (s *Store) Close() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Cancel()
	<-s.done
}

func (s *Store) applySnapshot(snap docstore.Snapshot) {
	if snap.Err != nil {
		// Keep the last known-good collection.
		s.logger.Warn("notes subscription delivery failed", zap.String("user", s.userID), zap.Error(snap.Err))
		return
	}

	now := time.Now().UTC()
	next := make([]models.Note, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		note := models.NoteFromFields(doc.ID, doc.Fields, now)
		if note.UserID != s.userID {
			continue
		}
		next = append(next, note)
	}
	sortNotes(next)

	s.mu.Lock()
	s.notes = next
	s.refilterLocked()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// sortNotes orders pinned notes first, then newest first within each group.
func sortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].IsPinned != notes[j].IsPinned {
			return notes[i].IsPinned
		}
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}

func (s *Store) refilterLocked() {
	if s.query == "" {
		s.filtered = s.notes
		return
	}
	filtered := make([]models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if n.MatchesQuery(s.query) {
			filtered = append(filtered, n)
		}
	}
	s.filtered = filtered
}

// Notes returns a copy of the full sorted collection.
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Note(nil), s.notes...)
}

// Filtered returns a copy of the collection view under the current query.
func (s *Store) Filtered() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Note(nil), s.filtered...)
}

// Query returns the raw search query string.
func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// ActiveID returns the id of the active note, or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SetActive selects the active note. An empty id clears the selection.
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

// NoteByID looks a note up in the local collection.
func (s *Store) NoteByID(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

// Create writes a new note owned by the current user. The new id becomes
// the active note. Declines silently when no user is signed in.
func (s *Store) Create(ctx context.Context, title, content string) (string, error) {
	if s.userID == "" {
		s.logger.Warn("create note declined, no signed-in user")
		return "", nil
	}

	id, err := s.ds.Insert(ctx, map[string]interface{}{
		"title":     title,
		"content":   content,
		"user_id":   s.userID,
		"is_pinned": false,
	})
	if err != nil {
		s.logger.Error("create note failed", zap.String("user", s.userID), zap.Error(err))
		return "", err
	}

	s.SetActive(id)
	return id, nil
}

// Delete removes a note. Local state is left untouched on failure; the
// subscription round-trip removes the note from the collection on success.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.userID == "" {
		s.logger.Warn("delete note declined, no signed-in user")
		return nil
	}

	if err := s.ds.Delete(ctx, id); err != nil {
		s.logger.Error("delete note failed", zap.String("id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	if s.activeID == id {
		s.activeID = ""
	}
	s.mu.Unlock()
	return nil
}

// TogglePin inverts a note's pin flag: the flip is applied to the local
// collection immediately so the UI reflects it without waiting for the
// subscription round-trip, then written through. If the write-through
// failed, the next delivery silently overwrites the optimistic value.
func (s *Store) TogglePin(ctx context.Context, id string) {
	if s.userID == "" {
		s.logger.Warn("toggle pin declined, no signed-in user")
		return
	}

	s.mu.Lock()
	idx := -1
	for i := range s.notes {
		if s.notes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.logger.Warn("toggle pin on unknown note", zap.String("id", id))
		return
	}
	next := !s.notes[idx].IsPinned
	s.notes[idx].IsPinned = next
	s.notes[idx].UpdatedAt = time.Now().UTC()
	sortNotes(s.notes)
	s.refilterLocked()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}

	if err := s.ds.Update(ctx, id, map[string]interface{}{"is_pinned": next}); err != nil {
		s.logger.Error("pin write-through failed", zap.String("id", id), zap.Error(err))
	}
}

// Search stores the raw query and recomputes the filtered view.
func (s *Store) Search(query string) {
	s.mu.Lock()
	s.query = query
	s.refilterLocked()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// UpdateNote writes title and content through to the remote store. The
// update timestamp is assigned by the store's clock.
func (s *Store) UpdateNote(ctx context.Context, id, title, content string) error {
	return s.ds.Update(ctx, id, map[string]interface{}{
		"title":   title,
		"content": content,
	})
}
