package docstore

import (
	"context"
	"errors"
)

// ErrNotFound distinguishes a write against a document that no longer
// exists from other failures. Callers racing against deletion rely on it.
var ErrNotFound = errors.New("docstore: document not found")

// Doc is a raw document as delivered by the store. Fields carries whatever
// the document holds; consumers are responsible for default-filling.
type Doc struct {
	ID     string
	Fields map[string]interface{}
}

// Snapshot is one delivery on a subscription: the full document set of the
// collection ordered by creation time descending, or a delivery error.
// Deliveries replace prior state entirely; they are never partial patches.
type Snapshot struct {
	Docs []Doc
	Err  error
}

// Subscription is a standing push channel of collection snapshots.
// Snapshots() is closed after Cancel returns or the subscribe context ends.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Cancel()
}

// Store is the remote document store boundary: schemaless per-record
// storage with a push-based change feed. Insert assigns the document id and
// both timestamps from the store's clock; Update refreshes the update
// timestamp and fails with ErrNotFound when the document is gone.
type Store interface {
	Subscribe(ctx context.Context) (Subscription, error)
	Insert(ctx context.Context, fields map[string]interface{}) (string, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}
