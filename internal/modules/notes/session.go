package notes

import (
	"context"
	"time"

	"github.com/quiknotes/core/internal/docstore"
	"go.uber.org/zap"
)

// Session is the shared per-user notes state: one live store view plus one
// autosave controller. It is constructed when a signed-in user first
// touches their notes and torn down on sign-out, cancelling the
// subscription and any pending save timer.
type Session struct {
	userID string
	store  *Store
	auto   *Autosave
	cancel context.CancelFunc
}

// SessionOptions bundles the collaborators a Session is built from.
type SessionOptions struct {
	Docstore docstore.Store
	Quiet    time.Duration
	Logger   *zap.Logger
	// OnChange is invoked with the refreshed collection whenever the
	// user's view changes (delivery, optimistic flip, or query change).
	OnChange func(userID string)
}

// OpenSession subscribes the user's store and wires the autosave controller.
func OpenSession(ctx context.Context, userID string, opts SessionOptions) (*Session, error) {
	subCtx, cancel := context.WithCancel(ctx)

	store := NewStore(opts.Docstore, userID, opts.Logger)
	if opts.OnChange != nil {
		store.SetOnChange(func() { opts.OnChange(userID) })
	}
	if err := store.Subscribe(subCtx); err != nil {
		cancel()
		return nil, err
	}

	return &Session{
		userID: userID,
		store:  store,
		auto:   NewAutosave(store, opts.Quiet, opts.Logger),
		cancel: cancel,
	}, nil
}

func (s *Session) UserID() string      { return s.userID }
func (s *Session) Store() *Store       { return s.store }
func (s *Session) Autosave() *Autosave { return s.auto }

// SetActive switches the active note and reconciles the edit buffer.
func (s *Session) SetActive(id string) {
	s.store.SetActive(id)
	s.auto.Reconcile()
}

// Create writes a new note; on success it becomes active and the buffer
// reconciles against it.
func (s *Session) Create(ctx context.Context, title, content string) (string, error) {
	id, err := s.store.Create(ctx, title, content)
	if err != nil || id == "" {
		return id, err
	}
	s.auto.Reconcile()
	return id, nil
}

// Delete removes a note; deleting the active note clears the selection
// and the edit buffer.
func (s *Session) Delete(ctx context.Context, id string) error {
	wasActive := s.store.ActiveID() == id
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if wasActive {
		s.auto.Reconcile()
	}
	return nil
}

// Close tears the session down: pending timer cancelled, buffers cleared,
// subscription cancelled and drained.
func (s *Session) Close() {
	s.auto.Close()
	s.cancel()
	s.store.Close()
}
