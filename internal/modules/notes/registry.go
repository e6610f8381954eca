package notes

import (
	"context"
	"sync"
	"time"

	"github.com/quiknotes/core/internal/docstore"
	"github.com/quiknotes/core/internal/models"
	"go.uber.org/zap"
)

// Notifier receives the refreshed collection view for a user whenever it
// changes. The gateway hub implements this to push to connected clients.
type Notifier interface {
	NotesChanged(userID string, notes []models.Note)
}

// Registry owns at most one Session per signed-in user. Sessions are
// opened lazily on first use and closed on sign-out or shutdown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ds       docstore.Store
	quiet    time.Duration
	logger   *zap.Logger
	notifier Notifier
	baseCtx  context.Context
}

func NewRegistry(ctx context.Context, ds docstore.Store, quiet time.Duration, notifier Notifier, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ds:       ds,
		quiet:    quiet,
		logger:   logger,
		notifier: notifier,
		baseCtx:  ctx,
	}
}

// Session returns the user's live session, opening one if needed.
func (r *Registry) Session(userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s, nil
	}

	s, err := OpenSession(r.baseCtx, userID, SessionOptions{
		Docstore: r.ds,
		Quiet:    r.quiet,
		Logger:   r.logger,
		OnChange: r.publish,
	})
	if err != nil {
		return nil, err
	}
	r.sessions[userID] = s
	r.logger.Info("notes session opened", zap.String("user", userID))
	return s, nil
}

// publish forwards the user's current view to the notifier.
func (r *Registry) publish(userID string) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	notifier := r.notifier
	r.mu.Unlock()
	if !ok || notifier == nil {
		return
	}
	notifier.NotesChanged(userID, s.Store().Filtered())
}

// CloseUser tears down the user's session, if any.
func (r *Registry) CloseUser(userID string) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()

	if ok {
		s.Close()
		r.logger.Info("notes session closed", zap.String("user", userID))
	}
}

// CloseAll tears down every session (shutdown path).
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
