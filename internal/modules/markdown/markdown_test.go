package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBasics(t *testing.T) {
	html, err := Render("# Heading\n\nsome *emphasis*")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Heading</h1>")
	assert.Contains(t, html, "<em>emphasis</em>")
}

func TestRenderGFM(t *testing.T) {
	html, err := Render("~~gone~~\n\n- [x] done\n- [ ] todo")
	require.NoError(t, err)
	assert.Contains(t, html, "<del>gone</del>")
	assert.Contains(t, html, "checkbox")
}

func TestRenderAutolink(t *testing.T) {
	html, err := Render("see https://example.com for details")
	require.NoError(t, err)
	assert.Contains(t, html, `<a href="https://example.com"`)
}

func TestRenderEmptyInput(t *testing.T) {
	html, err := Render("")
	require.NoError(t, err)
	assert.Equal(t, "", html)
}

func TestDocumentHTMLEscapesTitle(t *testing.T) {
	doc := documentHTML(`<script>alert("x")</script>`, "<p>body</p>")
	assert.NotContains(t, doc, `<script>alert`)
	assert.Contains(t, doc, "<p>body</p>")
}
