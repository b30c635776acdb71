package domain

import "time"

// Edition is a specific release of a book (hardcover, paperback, audio).
// Editions are the grandchildren of the author hierarchy: the book refresh
// adapter diffs them against the catalog the same way author refresh diffs
// books.
type Edition struct {
	ID               int64      `json:"id"`
	BookID           int64      `json:"book_id"`
	ForeignEditionID string     `json:"foreign_edition_id"`
	Title            string     `json:"title"`
	ISBN13           string     `json:"isbn13,omitempty"`
	ASIN             string     `json:"asin,omitempty"`
	Format           string     `json:"format,omitempty"`
	Publisher        string     `json:"publisher,omitempty"`
	PageCount        int        `json:"page_count,omitempty"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`
	Monitored        bool       `json:"monitored"`
	ManualAdd        bool       `json:"manual_add,omitempty"`
	Ratings          Ratings    `json:"ratings"`
}

// ContentEquals reports whether the remote-sourced fields match.
// Monitored and ManualAdd are library-owned and excluded.
func (e *Edition) ContentEquals(other *Edition) bool {
	if other == nil {
		return false
	}
	return e.ForeignEditionID == other.ForeignEditionID &&
		e.BookID == other.BookID &&
		e.Title == other.Title &&
		e.ISBN13 == other.ISBN13 &&
		e.ASIN == other.ASIN &&
		e.Format == other.Format &&
		e.Publisher == other.Publisher &&
		e.PageCount == other.PageCount &&
		equalTimePtr(e.ReleaseDate, other.ReleaseDate) &&
		e.Ratings == other.Ratings
}

// UseDBFieldsFrom copies library-owned fields from an existing row.
func (e *Edition) UseDBFieldsFrom(local *Edition) {
	e.ID = local.ID
	e.Monitored = local.Monitored
	e.ManualAdd = local.ManualAdd
}
