// Package domain contains the core business entities for the Shelfmark library.
package domain

import "slices"

// AuthorStatus describes whether an author is still publishing.
type AuthorStatus string

const (
	AuthorStatusContinuing AuthorStatus = "continuing"
	AuthorStatusEnded      AuthorStatus = "ended"
)

// Image is a remote-hosted cover or portrait.
type Image struct {
	URL       string `json:"url"`
	CoverType string `json:"cover_type,omitempty"` // "poster", "banner", "cover"
}

// Link is an external reference (publisher page, wiki, storefront).
type Link struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Ratings holds aggregate rating data from the metadata catalog.
type Ratings struct {
	Votes      int     `json:"votes"`
	Value      float64 `json:"value"`
	Popularity float64 `json:"popularity"`
}

// AuthorMetadata is the remote-sourced descriptive record for an author.
// It is stored separately from the Author library row so that a library row
// can be re-pointed at different metadata (catalog merges/renames) without
// losing local state. Exactly one Author references a given metadata row;
// an orphaned metadata row is kept for provenance until reclaimed.
type AuthorMetadata struct {
	ID              int64        `json:"id"`
	ForeignAuthorID string       `json:"foreign_author_id"`
	Name            string       `json:"name"`
	SortName        string       `json:"sort_name,omitempty"`
	CleanName       string       `json:"clean_name,omitempty"`
	Overview        string       `json:"overview,omitempty"`
	Disambiguation  string       `json:"disambiguation,omitempty"`
	Status          AuthorStatus `json:"status,omitempty"`
	Images          []Image      `json:"images,omitempty"`
	Links           []Link       `json:"links,omitempty"`
	Aliases         []string     `json:"aliases,omitempty"`
	Genres          []string     `json:"genres,omitempty"`
	Ratings         Ratings      `json:"ratings"`
}

// ContentEquals reports whether all remote-sourced fields match.
// Local ids are deliberately excluded; two rows describing the same catalog
// entry compare equal even before one of them has been persisted.
func (m *AuthorMetadata) ContentEquals(other *AuthorMetadata) bool {
	if other == nil {
		return false
	}
	return m.ForeignAuthorID == other.ForeignAuthorID &&
		m.Name == other.Name &&
		m.SortName == other.SortName &&
		m.CleanName == other.CleanName &&
		m.Overview == other.Overview &&
		m.Disambiguation == other.Disambiguation &&
		m.Status == other.Status &&
		slices.Equal(m.Images, other.Images) &&
		slices.Equal(m.Links, other.Links) &&
		slices.Equal(m.Aliases, other.Aliases) &&
		slices.Equal(m.Genres, other.Genres) &&
		m.Ratings == other.Ratings
}
