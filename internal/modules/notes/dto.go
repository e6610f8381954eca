package notes

// CreateNoteDTO is the create payload. Both fields default to empty; a
// freshly created note starts blank and becomes the active note.
type CreateNoteDTO struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ActiveDTO selects the active note; an empty id clears the selection.
type ActiveDTO struct {
	ID string `json:"id"`
}

// BufferDTO carries user edits into the autosave buffer. Nil fields are
// left untouched so title and content can be edited independently.
type BufferDTO struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type bufferResponse struct {
	ActiveID string `json:"active_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Saving   bool   `json:"saving"`
}

type listResponse struct {
	Data  interface{} `json:"data"`
	Query string      `json:"query"`
	Total int         `json:"total"`
}
