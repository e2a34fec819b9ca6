package richtext

import (
	"strconv"
	"strings"

	"github.com/fiffu/manzil/lib/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var headings = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// HTML renders blocks as an HTML fragment. Text is escaped by the renderer.
func HTML(blocks []models.Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		n := blockNode(b)
		if n == nil {
			continue
		}
		if err := html.Render(&sb, n); err != nil {
			return ""
		}
	}
	return sb.String()
}

func blockNode(b models.Block) *html.Node {
	switch b := b.(type) {
	case models.Paragraph:
		return element(atom.P, inlineNodes(b.Inlines)...)
	case models.Heading:
		return element(headings[clampLevel(b.Level)-1], inlineNodes(b.Inlines)...)
	case models.Quote:
		return element(atom.Blockquote, inlineNodes(b.Inlines)...)
	case models.Code:
		return element(atom.Pre, element(atom.Code, text(b.Text)))
	case models.Image:
		img := element(atom.Img)
		img.Attr = []html.Attribute{{Key: "src", Val: b.URL}, {Key: "alt", Val: b.Alt}}
		return img
	case models.List:
		tag := atom.Ul
		if b.Ordered {
			tag = atom.Ol
		}
		list := element(tag)
		for _, item := range b.Items {
			list.AppendChild(element(atom.Li, inlineNodes(item)...))
		}
		return list
	}
	return nil
}

func inlineNodes(inlines []models.Inline) []*html.Node {
	out := make([]*html.Node, 0, len(inlines))
	for _, in := range inlines {
		n := text(in.Text)
		if in.Code {
			n = element(atom.Code, n)
		}
		if in.Strikethrough {
			n = element(atom.S, n)
		}
		if in.Underline {
			n = element(atom.U, n)
		}
		if in.Italic {
			n = element(atom.Em, n)
		}
		if in.Bold {
			n = element(atom.Strong, n)
		}
		if in.URL != "" {
			a := element(atom.A, n)
			a.Attr = []html.Attribute{
				{Key: "href", Val: in.URL},
				{Key: "rel", Val: "noopener noreferrer"},
				{Key: "target", Val: "_blank"},
			}
			n = a
		}
		out = append(out, n)
	}
	return out
}

func element(tag atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: tag, Data: tag.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Text joins the text of every block, one block per space-separated run.
func Text(blocks []models.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		var s string
		switch b := b.(type) {
		case models.Paragraph:
			s = joinInlines(b.Inlines)
		case models.Heading:
			s = joinInlines(b.Inlines)
		case models.Quote:
			s = joinInlines(b.Inlines)
		case models.Code:
			s = b.Text
		case models.List:
			items := make([]string, 0, len(b.Items))
			for i, item := range b.Items {
				prefix := "-"
				if b.Ordered {
					prefix = strconv.Itoa(i+1) + "."
				}
				items = append(items, prefix+" "+joinInlines(item))
			}
			s = strings.Join(items, " ")
		}
		if s = compactWhitespace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func joinInlines(inlines []models.Inline) string {
	var sb strings.Builder
	for _, in := range inlines {
		sb.WriteString(in.Text)
	}
	return sb.String()
}
