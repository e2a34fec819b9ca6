package models

type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindHeading   BlockKind = "heading"
	KindList      BlockKind = "list"
	KindQuote     BlockKind = "quote"
	KindCode      BlockKind = "code"
	KindImage     BlockKind = "image"
)

// Block is one rich-text block of CMS content. The concrete type carries
// the payload for its kind.
type Block interface {
	Kind() BlockKind
}

// Inline is a run of text with its marks. A non-empty URL makes it a link.
type Inline struct {
	Text          string
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Code          bool
	URL           string
}

type Paragraph struct {
	Inlines []Inline
}

type Heading struct {
	Level   int
	Inlines []Inline
}

type List struct {
	Ordered bool
	Items   [][]Inline
}

type Quote struct {
	Inlines []Inline
}

type Code struct {
	Text string
}

type Image struct {
	URL string
	Alt string
}

func (Paragraph) Kind() BlockKind { return KindParagraph }
func (Heading) Kind() BlockKind   { return KindHeading }
func (List) Kind() BlockKind      { return KindList }
func (Quote) Kind() BlockKind     { return KindQuote }
func (Code) Kind() BlockKind      { return KindCode }
func (Image) Kind() BlockKind     { return KindImage }
