package search

import (
	"context"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// AuthorNameResolver resolves the display name for an author metadata id, so
// book documents can carry the denormalized author name. The store provides
// the real implementation; wiring happens at startup to avoid a package
// cycle.
type AuthorNameResolver interface {
	AuthorNameByMetadataID(ctx context.Context, metadataID int64) (string, error)
}

// Indexer keeps the search index in sync with store writes. It satisfies the
// store's indexer hook.
type Indexer struct {
	index   *SearchIndex
	authors AuthorNameResolver
}

// NewIndexer creates an Indexer over the given index.
func NewIndexer(index *SearchIndex, authors AuthorNameResolver) *Indexer {
	return &Indexer{index: index, authors: authors}
}

// IndexAuthor indexes or reindexes an author row.
func (i *Indexer) IndexAuthor(_ context.Context, author *domain.Author) error {
	return i.index.IndexDocument(AuthorToSearchDocument(author))
}

// DeleteAuthor removes an author row from the index.
func (i *Indexer) DeleteAuthor(_ context.Context, authorID int64) error {
	return i.index.DeleteDocument(AuthorDocID(authorID))
}

// IndexBook indexes or reindexes a book row with its author name
// denormalized in.
func (i *Indexer) IndexBook(ctx context.Context, book *domain.Book) error {
	name := ""
	if i.authors != nil {
		resolved, err := i.authors.AuthorNameByMetadataID(ctx, book.AuthorMetadataID)
		if err == nil {
			name = resolved
		}
	}
	return i.index.IndexDocument(BookToSearchDocument(book, name))
}

// DeleteBook removes a book row from the index.
func (i *Indexer) DeleteBook(_ context.Context, bookID int64) error {
	return i.index.DeleteDocument(BookDocID(bookID))
}
