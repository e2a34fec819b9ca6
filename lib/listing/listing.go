// Package listing filters and orders content records for display.
package listing

import (
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Record is anything that can be listed: a title to search, a category to
// match and a date to pick the year from. Records without a category
// return "".
type Record interface {
	RecordTitle() string
	RecordCategory() string
	RecordDate() string
}

// Criteria are the active filters. A zero field is no constraint.
type Criteria struct {
	Category string
	Search   string
	Year     string
}

func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// ParseCriteria reads criteria from the category, q and year query parameters.
func ParseCriteria(q url.Values) Criteria {
	return Criteria{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("q")),
		Year:     strings.TrimSpace(q.Get("year")),
	}
}

var leadingYear = regexp.MustCompile(`^\s*(\d{4})`)

// Year is the four-digit year a date string starts with, or "".
func Year(date string) string {
	m := leadingYear.FindStringSubmatch(date)
	if m == nil {
		return ""
	}
	return m[1]
}

// Filter returns the records matching every active criterion, in their
// input order. Category is matched first, then the case-insensitive title
// search, then the year. records is not modified.
func Filter[T Record](records []T, c Criteria) []T {
	search := strings.ToLower(c.Search)

	out := make([]T, 0, len(records))
	for _, r := range records {
		if c.Category != "" && r.RecordCategory() != c.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.RecordTitle()), search) {
			continue
		}
		if c.Year != "" && Year(r.RecordDate()) != c.Year {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Matches reports whether r passes every active criterion.
func Matches[T Record](r T, c Criteria) bool {
	return len(Filter([]T{r}, c)) == 1
}

// SortByPublishedDesc returns a copy of records ordered newest first.
// Records whose date does not parse keep their relative order at the end.
func SortByPublishedDesc[T Record](records []T) []T {
	out := slices.Clone(records)
	if out == nil {
		out = []T{}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		ta, oka := ParseDate(a.RecordDate())
		tb, okb := ParseDate(b.RecordDate())
		switch {
		case oka && okb:
			return tb.Compare(ta)
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
	return out
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

// ParseDate reads the date formats the CMS emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RecentYears lists the n years ending at now's year, newest first.
func RecentYears(now time.Time, n int) []string {
	years := make([]string, 0, max(n, 0))
	for i := 0; i < n; i++ {
		years = append(years, strconv.Itoa(now.Year()-i))
	}
	return years
}
