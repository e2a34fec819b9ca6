package models

type Article struct {
	ID          uint
	Title       string
	Description string
	Content     []Block
	CreatedAt   string
	ImageURL    string
}

func (a Article) RecordTitle() string    { return a.Title }
func (a Article) RecordCategory() string { return "" }
func (a Article) RecordDate() string     { return a.CreatedAt }

type Magazine struct {
	ID          uint
	Title       string
	CoverURL    string
	PDFURL      string
	Category    string
	PublishedAt string
}

func (m Magazine) RecordTitle() string    { return m.Title }
func (m Magazine) RecordCategory() string { return m.Category }
func (m Magazine) RecordDate() string     { return m.PublishedAt }

// Readable reports whether the magazine has a document the viewer can open.
func (m Magazine) Readable() bool {
	return Available(m.PDFURL)
}

type Category struct {
	ID   uint
	Name string
}

type Event struct {
	ID          uint
	Title       string
	Date        string
	Description []Block
	ImageURL    string
	Link        string
	LinkValid   bool
}

func (e Event) RecordTitle() string    { return e.Title }
func (e Event) RecordCategory() string { return "" }
func (e Event) RecordDate() string     { return e.Date }

// Bookmark is a persisted (user, magazine) pair. Its existence is what
// makes a magazine bookmarked.
type Bookmark struct {
	ID         uint
	UserID     uint
	MagazineID uint
}
