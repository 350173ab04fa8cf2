package notes

import (
	"strings"

	"golang.org/x/net/html"
)

const snippetLength = 100

// blockTags start a new run of text when rendered.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ol": true, "ul": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true, "td": true, "th": true,
}

// PlainText strips the markup from rich-text content and collapses
// whitespace. Script and style bodies are dropped.
func PlainText(content string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tt := z.Token()
			tag := tt.Data
			if tt.Type == html.StartTagToken && (tag == "script" || tag == "style") {
				skip++
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		}
	}
}

// Snippet is the dashboard preview of content: the first 100 characters of
// its plain text, with "..." when cut.
func Snippet(content string) string {
	text := PlainText(content)
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return strings.TrimRight(string(runes[:snippetLength]), " ") + "..."
}
