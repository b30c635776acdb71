package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initAuthors() error {
	authors, err := NewEntity(s, "author:",
		func(a *domain.Author) int64 { return a.ID },
		func(a *domain.Author, id int64) { a.ID = id },
	)
	if err != nil {
		return err
	}

	s.Authors = authors.
		WithUniqueIndex("foreign", func(a *domain.Author) []string {
			return []string{a.Metadata.ForeignAuthorID}
		}).
		WithUniqueIndex("metadata", func(a *domain.Author) []string {
			// Unassigned rows carry no key; "0" would collide.
			if a.MetadataID == 0 {
				return nil
			}
			return []string{strconv.FormatInt(a.MetadataID, 10)}
		})

	return nil
}

// FindAuthorByForeignID looks up the library author owning a catalog id.
// Returns nil (no error) when no author holds it.
func (s *Store) FindAuthorByForeignID(ctx context.Context, foreignID string) (*domain.Author, error) {
	author, err := s.Authors.GetByIndex(ctx, "foreign", foreignID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return author, nil
}

// GetAllAuthors returns every author in the library.
func (s *Store) GetAllAuthors(ctx context.Context) ([]*domain.Author, error) {
	return s.Authors.All(ctx)
}

// GetAuthors loads a set of authors by id, skipping ids that no longer exist.
func (s *Store) GetAuthors(ctx context.Context, ids []int64) ([]*domain.Author, error) {
	out := make([]*domain.Author, 0, len(ids))
	for _, id := range ids {
		author, err := s.Authors.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, author)
	}
	return out, nil
}

// SaveAuthor updates an existing author row and reindexes it for search.
func (s *Store) SaveAuthor(ctx context.Context, author *domain.Author) error {
	if err := s.Authors.Update(ctx, author); err != nil {
		return err
	}
	s.indexAuthor(ctx, author)
	return nil
}

// InsertAuthor persists a new author row and indexes it for search.
func (s *Store) InsertAuthor(ctx context.Context, author *domain.Author) error {
	if err := s.Authors.Insert(ctx, author); err != nil {
		return err
	}
	s.indexAuthor(ctx, author)
	return nil
}

// DeleteAuthor removes an author row. The metadata row is kept for
// provenance; books and dependent records are handled by the caller.
func (s *Store) DeleteAuthor(ctx context.Context, id int64) error {
	if err := s.Authors.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.searchIndexer.DeleteAuthor(ctx, id); err != nil && s.logger != nil {
		s.logger.Warn("failed to remove author from search index", "author_id", id, "error", err)
	}
	return nil
}

func (s *Store) indexAuthor(ctx context.Context, author *domain.Author) {
	if err := s.searchIndexer.IndexAuthor(ctx, author); err != nil && s.logger != nil {
		s.logger.Warn("failed to index author", "author_id", author.ID, "error", err)
	}
}
