package domain

import (
	"slices"
	"time"
)

// Book is a child of an Author. It relates to the author through
// AuthorMetadataID rather than the author row id, which is what lets book
// rows survive an author being re-pointed at different metadata.
type Book struct {
	ID               int64      `json:"id"`
	AuthorMetadataID int64      `json:"author_metadata_id"`
	ForeignBookID    string     `json:"foreign_book_id"`
	Title            string     `json:"title"`
	CleanTitle       string     `json:"clean_title,omitempty"`
	Overview         string     `json:"overview,omitempty"`
	Genres           []string   `json:"genres,omitempty"`
	Links            []Link     `json:"links,omitempty"`
	Ratings          Ratings    `json:"ratings"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`
	Monitored        bool       `json:"monitored"`
	AnyEditionOK     bool       `json:"any_edition_ok"`
	Added            time.Time  `json:"added"`
	LastInfoSync     *time.Time `json:"last_info_sync,omitempty"`

	// Remote-only payload: editions and series links reported by the
	// catalog, plus the author metadata the catalog filed this book under.
	// The refresh adapters consume these in memory; the store strips them
	// before a row is persisted.
	Editions       []Edition        `json:"editions,omitempty"`
	SeriesLinks    []SeriesBookLink `json:"series_links,omitempty"`
	AuthorMetadata *AuthorMetadata  `json:"author_metadata,omitempty"`
}

// ContentEquals reports whether the remote-sourced fields of two books match.
// Library-owned fields (monitoring, added timestamp) are excluded, as are the
// remote-only payload fields which are diffed separately.
func (b *Book) ContentEquals(other *Book) bool {
	if other == nil {
		return false
	}
	return b.ForeignBookID == other.ForeignBookID &&
		b.AuthorMetadataID == other.AuthorMetadataID &&
		b.Title == other.Title &&
		b.CleanTitle == other.CleanTitle &&
		b.Overview == other.Overview &&
		slices.Equal(b.Genres, other.Genres) &&
		slices.Equal(b.Links, other.Links) &&
		b.Ratings == other.Ratings &&
		equalTimePtr(b.ReleaseDate, other.ReleaseDate)
}

// UseDBFieldsFrom copies the library-owned fields of an existing row onto a
// freshly fetched remote representation, so that persisting the remote copy
// does not clobber local state.
func (b *Book) UseDBFieldsFrom(local *Book) {
	b.ID = local.ID
	b.Monitored = local.Monitored
	b.AnyEditionOK = local.AnyEditionOK
	b.Added = local.Added
	b.LastInfoSync = local.LastInfoSync
}

// ApplyMetadataFrom copies remote-sourced fields onto the local row and
// stamps the sync time.
func (b *Book) ApplyMetadataFrom(remote *Book) {
	b.ForeignBookID = remote.ForeignBookID
	b.AuthorMetadataID = remote.AuthorMetadataID
	b.Title = remote.Title
	b.CleanTitle = remote.CleanTitle
	b.Overview = remote.Overview
	b.Genres = remote.Genres
	b.Links = remote.Links
	b.Ratings = remote.Ratings
	b.ReleaseDate = remote.ReleaseDate
	b.SeriesLinks = remote.SeriesLinks
	now := time.Now().UTC()
	b.LastInfoSync = &now
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
