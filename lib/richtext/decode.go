package richtext

import (
	"encoding/json"
	"strings"

	"github.com/fiffu/manzil/lib/models"
)

// node is the CMS wire shape of a rich-text block or inline child.
type node struct {
	Type          string `json:"type"`
	Text          string `json:"text"`
	Level         int    `json:"level"`
	Format        string `json:"format"`
	URL           string `json:"url"`
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Underline     bool   `json:"underline"`
	Strikethrough bool   `json:"strikethrough"`
	Code          bool   `json:"code"`
	Image         *struct {
		URL             string `json:"url"`
		AlternativeText string `json:"alternativeText"`
	} `json:"image"`
	Children []node `json:"children"`
}

// Decode turns a CMS blocks field into typed blocks. Anything that is not a
// block array decodes to no blocks. resolve maps asset paths to absolute
// URLs and may be nil.
func Decode(raw json.RawMessage, resolve func(string) string) []models.Block {
	if len(raw) == 0 {
		return []models.Block{}
	}
	var nodes []node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return []models.Block{}
	}

	blocks := make([]models.Block, 0, len(nodes))
	for _, n := range nodes {
		if b := decodeBlock(n, resolve); b != nil {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func decodeBlock(n node, resolve func(string) string) models.Block {
	switch n.Type {
	case "heading":
		return models.Heading{Level: clampLevel(n.Level), Inlines: inlines(n.Children, "")}
	case "list":
		list := models.List{Ordered: n.Format == "ordered"}
		for _, item := range n.Children {
			list.Items = append(list.Items, inlines(item.Children, ""))
		}
		return list
	case "quote":
		return models.Quote{Inlines: inlines(n.Children, "")}
	case "code":
		return models.Code{Text: flatten(n.Children)}
	case "image":
		if n.Image == nil || n.Image.URL == "" {
			return nil
		}
		url := n.Image.URL
		if resolve != nil {
			url = resolve(url)
		}
		return models.Image{URL: url, Alt: n.Image.AlternativeText}
	default:
		// paragraphs, and unknown kinds that still carry text
		in := inlines(n.Children, "")
		if n.Type != "paragraph" && len(in) == 0 {
			return nil
		}
		return models.Paragraph{Inlines: in}
	}
}

func inlines(children []node, url string) []models.Inline {
	out := make([]models.Inline, 0, len(children))
	for _, c := range children {
		switch c.Type {
		case "link":
			out = append(out, inlines(c.Children, c.URL)...)
		case "list-item":
			out = append(out, inlines(c.Children, url)...)
		default:
			out = append(out, models.Inline{
				Text:          c.Text,
				Bold:          c.Bold,
				Italic:        c.Italic,
				Underline:     c.Underline,
				Strikethrough: c.Strikethrough,
				Code:          c.Code,
				URL:           url,
			})
		}
	}
	return out
}

func flatten(children []node) string {
	var sb strings.Builder
	for _, c := range children {
		sb.WriteString(c.Text)
		sb.WriteString(flatten(c.Children))
	}
	return sb.String()
}

func clampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 6:
		return 6
	}
	return level
}
