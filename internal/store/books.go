package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initBooks() error {
	books, err := NewEntity(s, "book:",
		func(b *domain.Book) int64 { return b.ID },
		func(b *domain.Book, id int64) { b.ID = id },
	)
	if err != nil {
		return err
	}

	s.Books = books.
		WithUniqueIndex("foreign", func(b *domain.Book) []string {
			return []string{b.ForeignBookID}
		}).
		WithIndex("author", func(b *domain.Book) []string {
			return []string{strconv.FormatInt(b.AuthorMetadataID, 10)}
		})

	return nil
}

// FindBookByForeignID looks up a book by catalog id.
// Returns nil (no error) when no book holds it.
func (s *Store) FindBookByForeignID(ctx context.Context, foreignID string) (*domain.Book, error) {
	book, err := s.Books.GetByIndex(ctx, "foreign", foreignID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// GetBooksByAuthorMetadataID returns all books owned by an author's metadata.
func (s *Store) GetBooksByAuthorMetadataID(ctx context.Context, metadataID int64) ([]*domain.Book, error) {
	return s.Books.ListByIndex(ctx, "author", strconv.FormatInt(metadataID, 10))
}

// GetBooksForRefresh returns the local children for a refresh pass: every
// book owned by the author's metadata plus any book matching an incoming
// foreign id regardless of owner. The second set catches books the catalog
// re-filed under this author.
func (s *Store) GetBooksForRefresh(ctx context.Context, metadataID int64, foreignIDs []string) ([]*domain.Book, error) {
	books, err := s.GetBooksByAuthorMetadataID(ctx, metadataID)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(books))
	for _, b := range books {
		have[b.ForeignBookID] = true
	}

	for _, foreignID := range foreignIDs {
		if have[foreignID] {
			continue
		}
		book, err := s.FindBookByForeignID(ctx, foreignID)
		if err != nil {
			return nil, err
		}
		if book != nil {
			books = append(books, book)
			have[foreignID] = true
		}
	}

	return books, nil
}

// InsertBooks persists new book rows and indexes them for search.
func (s *Store) InsertBooks(ctx context.Context, books []*domain.Book) error {
	rows := make([]*domain.Book, len(books))
	for i, book := range books {
		rows[i] = storedBookRow(book)
	}
	if err := s.Books.InsertMany(ctx, rows); err != nil {
		return err
	}
	for i, row := range rows {
		books[i].ID = row.ID
		s.indexBook(ctx, books[i])
	}
	return nil
}

// UpdateBooks persists changed book rows and reindexes them.
func (s *Store) UpdateBooks(ctx context.Context, books []*domain.Book) error {
	rows := make([]*domain.Book, len(books))
	for i, book := range books {
		rows[i] = storedBookRow(book)
	}
	if err := s.Books.UpdateMany(ctx, rows); err != nil {
		return err
	}
	for _, book := range books {
		s.indexBook(ctx, book)
	}
	return nil
}

// storedBookRow drops the remote-only catalog payload before a row hits
// disk. Editions and series links live in their own rows; keeping the
// embedded copies would persist whatever the catalog last reported.
func storedBookRow(book *domain.Book) *domain.Book {
	row := *book
	row.Editions = nil
	row.SeriesLinks = nil
	row.AuthorMetadata = nil
	return &row
}

// DeleteBooks removes book rows and drops them from the search index.
func (s *Store) DeleteBooks(ctx context.Context, ids []int64) error {
	if err := s.Books.DeleteMany(ctx, ids); err != nil {
		return err
	}
	for _, bookID := range ids {
		if err := s.searchIndexer.DeleteBook(ctx, bookID); err != nil && s.logger != nil {
			s.logger.Warn("failed to remove book from search index", "book_id", bookID, "error", err)
		}
	}
	return nil
}

func (s *Store) indexBook(ctx context.Context, book *domain.Book) {
	if err := s.searchIndexer.IndexBook(ctx, book); err != nil && s.logger != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}
