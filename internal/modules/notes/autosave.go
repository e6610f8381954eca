package notes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quiknotes/core/internal/docstore"
	"go.uber.org/zap"
)

const writeThroughTimeout = 10 * time.Second

// Autosave buffers edits to the active note and pushes them through the
// store after a quiet period. The buffer always originates from exactly
// one note (the active one) or is empty.
//
// Staleness suppression compares content only: a title-only edit with
// unchanged content is never persisted by the debounced path. The title
// rides along with the next content change.
type Autosave struct {
	mu     sync.Mutex
	store  *Store
	logger *zap.Logger
	quiet  time.Duration

	// noteID is the note the buffer originated from; writes are only ever
	// addressed to it, and only while it is still the active note.
	noteID    string
	title     string
	content   string
	lastSaved string
	saving    bool
	timer     *time.Timer
	closed    bool
}

func NewAutosave(store *Store, quiet time.Duration, logger *zap.Logger) *Autosave {
	return &Autosave{
		store:  store,
		logger: logger,
		quiet:  quiet,
	}
}

// Reconcile runs the active-note-change transition: load the active
// note's fields into the buffer, or clear it when there is no active note
// or the active note vanished. Any pending timer is cancelled; edits made
// against the previous note must not be written to the new one.
func (a *Autosave) Reconcile() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.stopTimerLocked()

	id := a.store.ActiveID()
	if id == "" {
		a.clearLocked()
		return
	}
	note, ok := a.store.NoteByID(id)
	if !ok {
		// Not in the local view yet (a fresh create races its own
		// delivery). Bind the empty buffer to the id so edits can save.
		a.clearLocked()
		a.noteID = id
		return
	}
	a.noteID = id
	a.title = note.Title
	a.content = note.Content
	a.lastSaved = note.Content
}

// SetTitle updates the buffer synchronously and (re)arms the save timer.
func (a *Autosave) SetTitle(title string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.title = title
	a.armLocked()
}

// SetContent updates the buffer synchronously and (re)arms the save timer.
func (a *Autosave) SetContent(content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.content = content
	a.armLocked()
}

// Buffer returns the current edit buffer.
func (a *Autosave) Buffer() (title, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.title, a.content
}

// Saving reports whether a write-through is in flight.
func (a *Autosave) Saving() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saving
}

// Close cancels any pending timer and drops the buffer. An in-flight
// write-through is not cancelled.
func (a *Autosave) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.stopTimerLocked()
	a.clearLocked()
}

// armLocked cancels any pending timer and schedules a fresh one, so only
// the last edit within a quiet window triggers a save.
func (a *Autosave) armLocked() {
	a.stopTimerLocked()
	a.timer = time.AfterFunc(a.quiet, a.flush)
}

func (a *Autosave) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Autosave) clearLocked() {
	a.noteID = ""
	a.title = ""
	a.content = ""
	a.lastSaved = ""
}

// flush is the debounced save. Skips: buffer bound to no note, empty
// buffer, a write already in flight (the next edit's timer retries),
// the buffer's note no longer active (a switch raced the timer; edits
// are dropped, never written to the newly active note), or content
// unchanged since the last successful save. A note deleted remotely
// surfaces as ErrNotFound on the write and clears the buffer; nothing
// is ever recreated.
func (a *Autosave) flush() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	id := a.noteID
	if id == "" || (a.title == "" && a.content == "") {
		a.mu.Unlock()
		return
	}
	if a.saving {
		a.mu.Unlock()
		return
	}
	if a.store.ActiveID() != id {
		a.clearLocked()
		a.mu.Unlock()
		return
	}
	if a.content == a.lastSaved {
		a.mu.Unlock()
		return
	}
	a.saving = true
	title, content := a.title, a.content
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeThroughTimeout)
	err := a.store.UpdateNote(ctx, id, title, content)
	cancel()

	a.mu.Lock()
	a.saving = false
	if a.noteID != id {
		// Reconciled to another note while the write was in flight.
		a.mu.Unlock()
		return
	}
	switch {
	case err == nil:
		a.lastSaved = content
	case errors.Is(err, docstore.ErrNotFound):
		// The note was deleted while the edit was pending.
		a.clearLocked()
	default:
		// Buffer kept as-is; the next debounce cycle retries.
		a.logger.Error("autosave write-through failed", zap.String("id", id), zap.Error(err))
	}
	a.mu.Unlock()
}
