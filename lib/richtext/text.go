package richtext

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
)

// PlainText extracts the visible text of an HTML fragment.
func PlainText(fragment string) string {
	doc, err := htmlquery.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	body := htmlquery.FindOne(doc, "//body")
	if body == nil {
		body = doc
	}
	buf := new(bytes.Buffer)
	dig(body, buf)
	return compactWhitespace(buf.String())
}

func dig(n *html.Node, buf *bytes.Buffer) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dig(c, buf)
	}
	if n.Type == html.ElementNode && breaksText(n.DataAtom) {
		buf.WriteByte(' ')
	}
}

func breaksText(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Li, atom.Br, atom.Blockquote, atom.Pre, atom.Div, atom.Td, atom.Th,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func compactWhitespace(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ")
	return s
}

// Excerpt shortens s to at most limit runes, cutting at a word boundary
// where one exists.
func Excerpt(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
