package domain

// Series is a named sequence of books by one author, keyed by the catalog's
// series id. Series rows are owned by the author's metadata the same way
// books are.
type Series struct {
	ID               int64  `json:"id"`
	AuthorMetadataID int64  `json:"author_metadata_id"`
	ForeignSeriesID  string `json:"foreign_series_id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Numbered         bool   `json:"numbered"`

	// LinkItems carries the catalog's book links on remote representations.
	LinkItems []SeriesBookLink `json:"link_items,omitempty"`
}

// ContentEquals reports whether the remote-sourced fields match.
func (s *Series) ContentEquals(other *Series) bool {
	if other == nil {
		return false
	}
	return s.ForeignSeriesID == other.ForeignSeriesID &&
		s.Title == other.Title &&
		s.Description == other.Description &&
		s.Numbered == other.Numbered
}

// SeriesBookLink relates a book to a series with its position ("1", "2.5",
// "prequel"). On remote representations BookID is unset and ForeignBookID
// carries the identity.
type SeriesBookLink struct {
	ID              int64  `json:"id"`
	SeriesID        int64  `json:"series_id"`
	BookID          int64  `json:"book_id,omitempty"`
	ForeignBookID   string `json:"foreign_book_id,omitempty"`
	ForeignSeriesID string `json:"foreign_series_id,omitempty"`
	Position        string `json:"position,omitempty"`
	IsPrimary       bool   `json:"is_primary,omitempty"`
}
