package domain

import "time"

// BookFile is an imported file on disk associated with an edition.
// Files are dependent records: a merge re-points them at the surviving
// row, it never deletes them.
type BookFile struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	BookID    int64     `json:"book_id"`
	EditionID int64     `json:"edition_id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Quality   string    `json:"quality,omitempty"` // "epub", "azw3", "pdf", "mp3"
	DateAdded time.Time `json:"date_added"`
}
