package store

import (
	"context"
	"strconv"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initBookFiles() error {
	files, err := NewEntity(s, "bookfile:",
		func(f *domain.BookFile) int64 { return f.ID },
		func(f *domain.BookFile, id int64) { f.ID = id },
	)
	if err != nil {
		return err
	}

	s.BookFiles = files.
		WithIndex("author", func(f *domain.BookFile) []string {
			return []string{strconv.FormatInt(f.AuthorID, 10)}
		}).
		WithIndex("book", func(f *domain.BookFile) []string {
			return []string{strconv.FormatInt(f.BookID, 10)}
		}).
		WithIndex("edition", func(f *domain.BookFile) []string {
			return []string{strconv.FormatInt(f.EditionID, 10)}
		})

	return nil
}

// GetFilesByAuthor returns all files belonging to an author.
func (s *Store) GetFilesByAuthor(ctx context.Context, authorID int64) ([]*domain.BookFile, error) {
	return s.BookFiles.ListByIndex(ctx, "author", strconv.FormatInt(authorID, 10))
}

// GetFilesByBook returns all files belonging to a book.
func (s *Store) GetFilesByBook(ctx context.Context, bookID int64) ([]*domain.BookFile, error) {
	return s.BookFiles.ListByIndex(ctx, "book", strconv.FormatInt(bookID, 10))
}

// GetFilesByEdition returns all files belonging to an edition.
func (s *Store) GetFilesByEdition(ctx context.Context, editionID int64) ([]*domain.BookFile, error) {
	return s.BookFiles.ListByIndex(ctx, "edition", strconv.FormatInt(editionID, 10))
}

// ReassignAuthorFiles re-points every file from one author row to another.
// Used by merges; files are never deleted by identity changes.
func (s *Store) ReassignAuthorFiles(ctx context.Context, fromAuthorID, toAuthorID int64) error {
	files, err := s.GetFilesByAuthor(ctx, fromAuthorID)
	if err != nil {
		return err
	}
	for _, f := range files {
		f.AuthorID = toAuthorID
	}
	return s.BookFiles.UpdateMany(ctx, files)
}

// ReassignBookFiles re-points every file from one book row to another.
func (s *Store) ReassignBookFiles(ctx context.Context, fromBookID, toBookID int64) error {
	files, err := s.GetFilesByBook(ctx, fromBookID)
	if err != nil {
		return err
	}
	for _, f := range files {
		f.BookID = toBookID
	}
	return s.BookFiles.UpdateMany(ctx, files)
}

// ReassignEditionFiles re-points every file from one edition row to another.
func (s *Store) ReassignEditionFiles(ctx context.Context, fromEditionID, toEditionID int64) error {
	files, err := s.GetFilesByEdition(ctx, fromEditionID)
	if err != nil {
		return err
	}
	for _, f := range files {
		f.EditionID = toEditionID
	}
	return s.BookFiles.UpdateMany(ctx, files)
}
