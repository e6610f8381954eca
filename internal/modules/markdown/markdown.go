package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quiknotes/core/internal/middleware"
	"github.com/quiknotes/core/internal/modules/notes"
	"github.com/quiknotes/core/internal/pkg/response"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// Render converts markdown source to HTML.
func Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Handler serves markdown previews of notes.
type Handler struct {
	registry *notes.Registry
}

func NewHandler(registry *notes.Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/markdown", authMW)
	g.POST("/render", h.render)
	g.GET("/render/:id", h.renderNote)
}

type renderDTO struct {
	MD    string `json:"md" binding:"required"`
	Title string `json:"title"`
}

// POST /markdown/render previews raw markdown from the editor buffer.
func (h *Handler) render(c *gin.Context) {
	var dto renderDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	html, err := Render(dto.MD)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"title": dto.Title, "html": html})
}

// GET /markdown/render/:id previews one of the user's own notes as a
// standalone HTML document.
func (h *Handler) renderNote(c *gin.Context) {
	s, err := h.registry.Session(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	note, ok := s.Store().NoteByID(strings.TrimSpace(c.Param("id")))
	if !ok {
		response.NotFoundMsg(c, "note not found")
		return
	}
	body, err := Render(note.Content)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, documentHTML(note.Title, body))
}

func documentHTML(title, body string) string {
	escapedTitle := template.HTMLEscapeString(strings.TrimSpace(title))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>%s</title>
  <style>
    body { margin: 0; padding: 24px; font: 16px/1.7 -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; color: #222; background: #fff; }
    main { max-width: 860px; margin: 0 auto; }
    h1 { margin: 0 0 20px; font-size: 28px; }
    pre { white-space: pre-wrap; word-break: break-word; border: 1px solid #eee; border-radius: 8px; padding: 16px; background: #fafafa; }
  </style>
</head>
<body>
  <main>
    <h1>%s</h1>
    %s
  </main>
</body>
</html>`, escapedTitle, escapedTitle, body)
}
