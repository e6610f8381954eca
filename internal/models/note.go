package models

import (
	"strings"
	"time"
)

// Note is a document in the remote notes collection.
// Documents written by older clients may miss optional fields; FromFields
// backfills every field with a defined default so nothing downstream ever
// sees a missing value.
type Note struct {
	ID        string    `json:"id"         bson:"_id,omitempty"`
	Title     string    `json:"title"      bson:"title"`
	Content   string    `json:"content"    bson:"content"`
	UserID    string    `json:"user_id"    bson:"user_id"`
	IsPinned  bool      `json:"is_pinned"  bson:"is_pinned"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NoteFromFields builds a Note from a raw document, default-filling
// missing optional fields.
func NoteFromFields(id string, fields map[string]interface{}, now time.Time) Note {
	n := Note{
		ID:        id,
		Title:     stringField(fields, "title"),
		Content:   stringField(fields, "content"),
		UserID:    stringField(fields, "user_id"),
		IsPinned:  boolField(fields, "is_pinned"),
		CreatedAt: timeField(fields, "created_at", now),
		UpdatedAt: timeField(fields, "updated_at", now),
	}
	return n
}

// MatchesQuery reports whether the note matches a case-insensitive
// substring query against title or content.
func (n Note) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func boolField(fields map[string]interface{}, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}

func timeField(fields map[string]interface{}, key string, fallback time.Time) time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		if !v.IsZero() {
			return v
		}
	case *time.Time:
		if v != nil && !v.IsZero() {
			return *v
		}
	}
	return fallback
}
