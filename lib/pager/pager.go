// Package pager tracks two-page spreads of an open PDF magazine.
package pager

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ViewportWidth is the width in pixels each page must be rendered at.
const ViewportWidth = 600

var ErrNoDocument = errors.New("no document is open")

// Cue is played when the spread changes, e.g. a page-turn sound.
type Cue interface {
	Play()
}

type Pager struct {
	cue Cue
	log *zap.Logger

	mu    sync.Mutex
	doc   string
	open  bool
	index int
	total int
}

// New returns a pager with no document. cue may be nil.
func New(cue Cue, log *zap.Logger) *Pager {
	return &Pager{cue: cue, log: log}
}

// Page is one rendered page of a spread. Number 0 means there is no page.
type Page struct {
	Number int `json:"number"`
	Width  int `json:"width"`
}

type Spread struct {
	Document string `json:"document"`
	Index    int    `json:"index"`
	Count    int    `json:"count"`
	Total    int    `json:"total"`
	Left     Page   `json:"left"`
	Right    Page   `json:"right"`
}

// Open starts viewing doc from the first spread with an unknown page count.
func (p *Pager) Open(doc string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc, p.open = doc, true
	p.index, p.total = 0, 0
	p.log.Sugar().Infow("Document opened", "document", doc)
}

// Loaded records the page count once the document has been fetched.
func (p *Pager) Loaded(total int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrNoDocument
	}
	if total < 0 {
		total = 0
	}
	p.total = total
	p.index = clamp(p.index, spreads(total))
	return nil
}

func (p *Pager) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc, p.open = "", false
	p.index, p.total = 0, 0
}

func (p *Pager) Next() (Spread, error) {
	return p.move(func(i int) int { return i + 1 })
}

func (p *Pager) Previous() (Spread, error) {
	return p.move(func(i int) int { return i - 1 })
}

// Seek jumps to spread i, clamped to the document.
func (p *Pager) Seek(i int) (Spread, error) {
	return p.move(func(int) int { return i })
}

func (p *Pager) move(to func(int) int) (Spread, error) {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return Spread{}, ErrNoDocument
	}
	next := clamp(to(p.index), spreads(p.total))
	moved := next != p.index
	p.index = next
	s := p.spread()
	p.mu.Unlock()

	if moved && p.cue != nil {
		go p.cue.Play()
	}
	return s, nil
}

// Spread returns the current view.
func (p *Pager) Spread() (Spread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return Spread{}, ErrNoDocument
	}
	return p.spread(), nil
}

func (p *Pager) spread() Spread {
	return Spread{
		Document: p.doc,
		Index:    p.index,
		Count:    spreads(p.total),
		Total:    p.total,
		Left:     page(2*p.index+1, p.total),
		Right:    page(2*p.index+2, p.total),
	}
}

func page(n, total int) Page {
	if n > total {
		return Page{}
	}
	return Page{Number: n, Width: ViewportWidth}
}

func spreads(total int) int {
	return (total + 1) / 2
}

func clamp(i, count int) int {
	if i >= count {
		i = count - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
