package worker

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/educloud/notes/models"
)

// Renderer turns a note into an exported document.
type Renderer interface {
	Render(note models.Note) ([]byte, error)
	ContentType() string
}

// TextRenderer writes a plain-text document: the title, an underline, and
// the content with one line per block and list items bulleted.
type TextRenderer struct{}

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (TextRenderer) Render(note models.Note) ([]byte, error) {
	doc, err := html.Parse(strings.NewReader(note.Content))
	if err != nil {
		return nil, err
	}

	var lines []string
	var line strings.Builder
	endLine := func() {
		if text := strings.Join(strings.Fields(line.String()), " "); text != "" {
			lines = append(lines, text)
		}
		line.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			line.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br:
				endLine()
				return
			case atom.Li:
				endLine()
				line.WriteString("- ")
			case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.Blockquote, atom.Pre:
				endLine()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Li, atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.Blockquote, atom.Pre:
				endLine()
			}
		}
	}
	walk(doc)
	endLine()

	title := note.Title
	if strings.TrimSpace(title) == "" {
		title = models.UntitledNote
	}

	var buf bytes.Buffer
	buf.WriteString(title)
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat("=", len([]rune(title))))
	buf.WriteString("\n\n")
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
