package notes

import (
	"github.com/gin-gonic/gin"
	"github.com/quiknotes/core/internal/middleware"
	"github.com/quiknotes/core/internal/pkg/response"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	notes := rg.Group("/notes", authMW)

	notes.GET("", h.list)
	notes.POST("", h.create)
	notes.GET("/:id", h.getByID)
	notes.DELETE("/:id", h.delete)
	notes.POST("/:id/pin", h.togglePin)
	notes.PUT("/active", h.setActive)
	notes.GET("/buffer", h.getBuffer)
	notes.PUT("/buffer", h.updateBuffer)
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	s, err := h.registry.Session(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) list(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if q, present := c.GetQuery("q"); present {
		s.Store().Search(q)
	}
	items := s.Store().Filtered()
	response.OK(c, listResponse{Data: items, Query: s.Store().Query(), Total: len(items)})
}

func (h *Handler) getByID(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	note, found := s.Store().NoteByID(c.Param("id"))
	if !found {
		response.NotFoundMsg(c, "note not found")
		return
	}
	response.OK(c, note)
}

func (h *Handler) create(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var dto CreateNoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	id, err := s.Create(c.Request.Context(), dto.Title, dto.Content)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

func (h *Handler) delete(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) togglePin(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Store().TogglePin(c.Request.Context(), c.Param("id"))
	response.NoContent(c)
}

func (h *Handler) setActive(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var dto ActiveDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s.SetActive(dto.ID)
	h.respondBuffer(c, s)
}

func (h *Handler) getBuffer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respondBuffer(c, s)
}

func (h *Handler) updateBuffer(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var dto BufferDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Title != nil {
		s.Autosave().SetTitle(*dto.Title)
	}
	if dto.Content != nil {
		s.Autosave().SetContent(*dto.Content)
	}
	h.respondBuffer(c, s)
}

func (h *Handler) respondBuffer(c *gin.Context, s *Session) {
	title, content := s.Autosave().Buffer()
	response.OK(c, bufferResponse{
		ActiveID: s.Store().ActiveID(),
		Title:    title,
		Content:  content,
		Saving:   s.Autosave().Saving(),
	})
}
