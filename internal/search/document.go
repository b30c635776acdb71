// Package search provides full-text search over the library using Bleve.
// Authors and books are indexed into a single index with type
// discrimination, fuzzy matching and faceted genre filtering.
package search

import (
	"fmt"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeAuthor DocType = "author"
	DocTypeBook   DocType = "book"
)

// SearchDocument is the unified document structure for the Bleve index.
// All searchable entities are indexed as SearchDocuments with type
// discrimination.
//
// Author names are denormalized into book documents so a single query can
// rank "Dune by Frank Herbert" without a join at search time. The catalog
// refresh reindexes affected books whenever an author row changes, so the
// denormalized copy never drifts for long.
type SearchDocument struct {
	// Identity
	ID   string  `json:"id"`   // Prefixed entity id (author:12, book:7)
	Type DocType `json:"type"` // Discriminator for result grouping

	// Primary searchable text: author name or book title.
	Name string `json:"name"`

	// Overview text (author biography or book description).
	Overview string `json:"overview,omitempty"`

	// Book-specific fields (empty for authors)
	Author string `json:"author,omitempty"` // Denormalized for search

	// Genres for exact-match filtering and faceting.
	Genres []string `json:"genres,omitempty"`

	// Numeric fields for range queries and sorting
	Rating      float64 `json:"rating,omitempty"`
	ReleaseYear int     `json:"release_year,omitempty"` // (books only)

	// Added timestamp for sorting by recency. Unix millis.
	Added int64 `json:"added"`
}

// AuthorDocID returns the index document id for an author row.
func AuthorDocID(id int64) string { return fmt.Sprintf("author:%d", id) }

// BookDocID returns the index document id for a book row.
func BookDocID(id int64) string { return fmt.Sprintf("book:%d", id) }

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":    d.ID,
		"type":  string(d.Type),
		"name":  d.Name,
		"added": d.Added,
	}

	// Optional fields - only add if non-empty
	if d.Overview != "" {
		m["overview"] = d.Overview
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	if d.Rating > 0 {
		m["rating"] = d.Rating
	}
	if d.ReleaseYear > 0 {
		m["release_year"] = d.ReleaseYear
	}

	return m
}

// AuthorToSearchDocument converts a library author to a SearchDocument.
func AuthorToSearchDocument(a *domain.Author) *SearchDocument {
	return &SearchDocument{
		ID:       AuthorDocID(a.ID),
		Type:     DocTypeAuthor,
		Name:     a.Metadata.Name,
		Overview: a.Metadata.Overview,
		Genres:   a.Metadata.Genres,
		Rating:   a.Metadata.Ratings.Value,
		Added:    a.Added.UnixMilli(),
	}
}

// BookToSearchDocument converts a library book to a SearchDocument.
// The author name is denormalized in by the caller; the search package does
// not depend on the store.
func BookToSearchDocument(b *domain.Book, authorName string) *SearchDocument {
	doc := &SearchDocument{
		ID:       BookDocID(b.ID),
		Type:     DocTypeBook,
		Name:     b.Title,
		Overview: b.Overview,
		Author:   authorName,
		Genres:   b.Genres,
		Rating:   b.Ratings.Value,
		Added:    b.Added.UnixMilli(),
	}

	if b.ReleaseDate != nil {
		doc.ReleaseYear = b.ReleaseDate.Year()
	}

	return doc
}
